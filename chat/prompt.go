package chat

import "strings"

// GenerationErrorPrefix starts the answer text when the language model fails.
const GenerationErrorPrefix = "Error from language model: "

const instructions = `Use the context below to answer the question in a detailed and comprehensive manner.
Summarize the main points related to the question and provide specifics from the documents if available.
If the answer is not found in the documents, state that clearly.`

const noContextInstructions = `No document content was found for the question below.
Reply that the answer is not available in the uploaded documents.`

// BuildPrompt renders the prompt sent to the language model.
// An empty context produces a prompt that asks the model to say the answer
// is not available.
func BuildPrompt(context, question string) string {
	var sb strings.Builder
	if context == "" {
		sb.WriteString(noContextInstructions)
	} else {
		sb.WriteString(instructions)
		sb.WriteString("\n\nContext:\n")
		sb.WriteString(context)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteByte('\n')
	return sb.String()
}
