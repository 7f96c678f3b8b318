package badger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	seq     *badger.Sequence
	// appendMu keeps sequence order and commit order identical.
	appendMu sync.Mutex
	logger   *slog.Logger
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	seq, err := backend.GetSequence(turnSeq)
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		seq:     seq,
		logger:  backend.logger.With("repository", "conversation"),
	}, nil
}

// Close releases the turn sequence.
func (r *ConversationRepository) Close() error {
	return r.seq.Release()
}

// AppendTurn adds a turn to the end of the log.
func (r *ConversationRepository) AppendTurn(ctx context.Context, turn *core.ConversationTurn) (*core.ConversationTurn, error) {
	if err := core.ValidateTurn(turn); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	stored := *turn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		seq, err := nextID(r.seq)
		if err != nil {
			return err
		}
		stored.Seq = core.ID(seq)
		if stored.Timestamp.IsZero() {
			stored.Timestamp = time.Now()
		}
		// Stored times have microsecond precision.
		stored.Timestamp = stored.Timestamp.UTC().Truncate(time.Microsecond)
		if err := tx.Set(makeTurnKey(stored.Seq), storage.MarshalTurn(&stored)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("appended turn", "seq", stored.Seq, "role", stored.Role)
	return &stored, nil
}

// History returns all turns in append order.
func (r *ConversationRepository) History(ctx context.Context) ([]*core.ConversationTurn, error) {
	results := []*core.ConversationTurn{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(turnRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				turn, err := storage.UnmarshalTurn(val)
				if err != nil {
					return err
				}
				results = append(results, turn)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}
