package extract

import "errors"

var (
	// ErrMalformedPDF indicates the PDF could not be parsed.
	ErrMalformedPDF = errors.New("malformed pdf")

	// ErrMalformedDocx indicates the DOCX archive could not be read.
	ErrMalformedDocx = errors.New("malformed docx")
)
