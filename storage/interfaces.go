package storage

import (
	"context"

	"github.com/poiesic/docchat/core"
)

// AddResult tells the caller whether a document was stored or skipped.
type AddResult int

const (
	// Added means the document was new and is now stored.
	Added AddResult = iota + 1
	// AlreadyExists means a document with the same name was stored earlier;
	// the new upload was ignored.
	AlreadyExists
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyExists:
		return "already exists"
	default:
		return "unknown"
	}
}

// DocumentRepository is the session's document store. It is append-only:
// documents are keyed by name and never updated or removed.
type DocumentRepository interface {
	// AddDocument stores a document unless one with the same name exists.
	// The existence check and the write are atomic, so concurrent uploads of
	// one name yield exactly one Added.
	// Returns ErrDimensionMismatch if the document's embeddings differ in size
	// from those already stored.
	AddDocument(ctx context.Context, doc *core.Document) (AddResult, error)

	// GetDocument retrieves a document by name.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, name string) (*core.Document, error)

	// ListDocuments returns every document in insertion order.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// Version increases each time a document is added. Readers can use it to
	// tell whether a derived index is stale.
	Version() uint64

	// Dimension returns the embedding dimension fixed by the first stored
	// document with chunks, or 0 if none has been stored yet.
	Dimension() int

	// Close releases resources held by the repository.
	Close() error
}

// ConversationRepository is the ordered, append-only log of conversation turns.
type ConversationRepository interface {
	// AppendTurn adds a turn to the end of the log.
	// Assigns the sequence number and sets Timestamp if not already set.
	// Returns the stored turn.
	AppendTurn(ctx context.Context, turn *core.ConversationTurn) (*core.ConversationTurn, error)

	// History returns all turns in append order.
	// The returned turns are copies; changing them does not affect the log.
	History(ctx context.Context) ([]*core.ConversationTurn, error)

	// Close releases resources held by the repository.
	Close() error
}
