package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// maxCommitAttempts bounds retries of an add that lost a write conflict.
const maxCommitAttempts = 8

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend   *Backend
	orderSeq  *badger.Sequence
	version   atomic.Uint64
	dimension atomic.Int64
	logger    *slog.Logger
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	orderSeq, err := backend.GetSequence(documentOrderSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend:  backend,
		orderSeq: orderSeq,
		logger:   backend.logger.With("repository", "documents"),
	}, nil
}

// Close releases the order sequence.
func (r *DocumentRepository) Close() error {
	return r.orderSeq.Release()
}

// Version returns the number of documents added so far.
func (r *DocumentRepository) Version() uint64 {
	return r.version.Load()
}

// Dimension returns the embedding dimension fixed by the store, or 0.
func (r *DocumentRepository) Dimension() int {
	return int(r.dimension.Load())
}

// AddDocument stores doc unless a document with the same name exists.
// On success doc.InsertedAt is set to the time of insertion.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (storage.AddResult, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return 0, err
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		result, err := r.tryAdd(doc)
		if !errors.Is(err, badger.ErrConflict) {
			return result, err
		}
		// A concurrent add touched the same keys. Retrying re-reads them,
		// so a same-name race resolves to AlreadyExists.
		if attempt == maxCommitAttempts {
			return 0, fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
		}
		r.logger.Debug("retrying document add after conflict", "name", doc.Name, "attempt", attempt)
	}
}

func (r *DocumentRepository) tryAdd(doc *core.Document) (storage.AddResult, error) {
	var (
		result     storage.AddResult
		insertedAt time.Time
	)
	dim := doc.Dimension()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id := doc.Id()
		key := makeDocumentKey(id)

		existing, found, err := getValue(tx, key, storage.UnmarshalDocument)
		if err != nil {
			return err
		}
		if found {
			if existing.Name != doc.Name {
				return fmt.Errorf("%w: %q and %q", storage.ErrKeyCollision, existing.Name, doc.Name)
			}
			result = storage.AlreadyExists
			return nil
		}

		if dim > 0 {
			if err := r.checkDimension(tx, dim); err != nil {
				return err
			}
		}

		seq, err := nextID(r.orderSeq)
		if err != nil {
			return err
		}

		// Stored times have microsecond precision.
		insertedAt = time.Now().UTC().Truncate(time.Microsecond)
		header := core.Document{Name: doc.Name, Kind: doc.Kind, InsertedAt: insertedAt}
		if err := tx.Set(key, storage.MarshalDocument(&header)); err != nil {
			return err
		}
		for i := range doc.Chunks {
			if err := tx.Set(makeDocumentChunkKey(id, i), storage.MarshalChunk(&doc.Chunks[i])); err != nil {
				return err
			}
		}
		if err := tx.Set(makeDocumentOrderKey(seq), storage.MarshalID(id)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = storage.Added
		return nil
	}, true)
	if err != nil {
		return 0, err
	}

	if result == storage.Added {
		doc.InsertedAt = insertedAt
		if dim > 0 {
			r.dimension.CompareAndSwap(0, int64(dim))
		}
		r.version.Add(1)
	}
	return result, nil
}

// checkDimension fixes the store dimension on first use and rejects any
// later document whose embeddings differ from it.
func (r *DocumentRepository) checkDimension(tx *badger.Txn, dim int) error {
	current, found, err := getValue(tx, []byte(documentDimensionKey), unmarshalDimension)
	if err != nil {
		return err
	}
	if !found {
		return tx.Set([]byte(documentDimensionKey), marshalDimension(dim))
	}
	if current != dim {
		return fmt.Errorf("%w: got %d, store holds %d", storage.ErrDimensionMismatch, dim, current)
	}
	return nil
}

// GetDocument retrieves a document by name.
func (r *DocumentRepository) GetDocument(ctx context.Context, name string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := loadDocument(ctx, tx, core.IDFromContent(name))
		if err != nil {
			return err
		}
		if doc.Name != name {
			return storage.ErrNotFound
		}
		result = doc
		return nil
	}, false)
	return result, err
}

// ListDocuments returns every document in insertion order.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := documentOrder(ctx, tx)
		if err != nil {
			return err
		}

		results = make([]*core.Document, 0, len(ids))
		for _, id := range ids {
			doc, err := loadDocument(ctx, tx, id)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: order index points at missing document %d", storage.ErrNotFound, id)
			}
			if err != nil {
				return err
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// documentOrder reads the insertion order index.
func documentOrder(ctx context.Context, tx *badger.Txn) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentOrderPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := iter.Item().Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// loadDocument reads a document header and its chunks.
func loadDocument(ctx context.Context, tx *badger.Txn, id core.ID) (*core.Document, error) {
	doc, found, err := getValue(tx, makeDocumentKey(id), storage.UnmarshalDocument)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeDocumentChunksPrefix(id)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := iter.Item().Value(func(val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			doc.Chunks = append(doc.Chunks, chunk)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func marshalDimension(dim int) []byte {
	buf := make([]byte, varint.PositiveInt.Size(dim))
	varint.PositiveInt.Marshal(dim, buf)
	return buf
}

func unmarshalDimension(data []byte) (int, error) {
	dim, _, err := varint.PositiveInt.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return dim, nil
}
