// Package ingestion turns uploaded files into stored documents.
//
// For each Upload the Pipeline:
//   - Extracts plain text according to the document kind
//   - Segments the text into headed chunks
//   - Embeds every chunk
//   - Adds the document to the store unless the name is already present
//
// Uploads are prepared concurrently on a worker pool and then added to the
// store in upload order, so the corpus order does not depend on scheduling.
// A failure for one upload is reported in its Outcome and does not affect
// the others.
package ingestion
