// Package extract converts uploaded document bytes into plain text.
//
// Supported kinds are PDF, DOCX and UTF-8 plain text. Anything else extracts
// to the empty string, which downstream code treats as a document with zero
// sections rather than a failure.
package extract
