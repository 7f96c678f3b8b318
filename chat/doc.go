// Package chat answers questions about the loaded documents.
//
// A Responder logs the question, retrieves the most relevant chunks,
// builds a prompt around them and asks the language model. The answer and
// the context it was based on are logged as an assistant turn. A model
// failure is not returned as an error; it becomes the answer text so the
// conversation log stays complete.
package chat
