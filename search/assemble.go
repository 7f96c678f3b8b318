package search

import "strings"

const hitSeparator = "\n\n"

// Assemble renders hits as a context block for the language model, one
// "Doc: <name> | Section: <header>" labelled entry per hit, in the order given.
// Returns "" for no hits.
func Assemble(hits []Hit) string {
	var sb strings.Builder
	for i, hit := range hits {
		if i > 0 {
			sb.WriteString(hitSeparator)
		}
		sb.WriteString("Doc: ")
		sb.WriteString(hit.Meta.DocumentName)
		sb.WriteString(" | Section: ")
		sb.WriteString(hit.Meta.Header)
		sb.WriteByte('\n')
		sb.WriteString(hit.Text)
	}
	return sb.String()
}
