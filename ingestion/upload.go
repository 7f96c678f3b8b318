package ingestion

import (
	"path/filepath"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/extract"
)

// Upload is a named file submitted for ingestion.
type Upload struct {
	Name string
	Kind core.DocumentKind
	Data []byte
}

// NewUpload creates an Upload named after the base of path, with the kind
// inferred from its extension.
func NewUpload(path string, data []byte) Upload {
	name := filepath.Base(path)
	return Upload{
		Name: name,
		Kind: extract.KindFromFilename(name),
		Data: data,
	}
}

// Status is the result of ingesting one upload.
type Status int

const (
	// StatusLoaded means the document was segmented, embedded and stored.
	StatusLoaded Status = iota + 1
	// StatusSkipped means a document with the same name was already stored.
	StatusSkipped
	// StatusFailed means the upload could not be stored; see Outcome.Err.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports what happened to one upload.
type Outcome struct {
	Name     string
	Sections int
	Status   Status
	Err      error
}

func loaded(name string, sections int) Outcome {
	return Outcome{Name: name, Sections: sections, Status: StatusLoaded}
}

func skipped(name string) Outcome {
	return Outcome{Name: name, Status: StatusSkipped}
}

func failed(name string, err error) Outcome {
	return Outcome{Name: name, Status: StatusFailed, Err: err}
}
