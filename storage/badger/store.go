// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"errors"
	"log/slog"

	"github.com/poiesic/docchat/storage"
)

// MemoryStore is one session's document store and conversation log sharing
// a single in-memory Badger instance.
type MemoryStore struct {
	Backend      *Backend
	Documents    storage.DocumentRepository
	Conversation storage.ConversationRepository
}

// OpenMemoryStore opens an in-memory backend and both repositories on it.
// A nil logger uses slog.Default().
func OpenMemoryStore(logger *slog.Logger) (*MemoryStore, error) {
	backend, err := OpenMemoryBackend(logger)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	conv, err := NewConversationRepository(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryStore{Backend: backend, Documents: docs, Conversation: conv}, nil
}

// Close closes the repositories and then the backend. Everything stored is
// discarded.
func (s *MemoryStore) Close() error {
	return errors.Join(
		s.Conversation.Close(),
		s.Documents.Close(),
		s.Backend.Close(),
	)
}

// NewMemoryRepositories is OpenMemoryStore unpacked, for tests that only
// need the repositories. Caller must close both repos and the backend.
func NewMemoryRepositories() (storage.DocumentRepository, storage.ConversationRepository, *Backend, error) {
	store, err := OpenMemoryStore(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return store.Documents, store.Conversation, store.Backend, nil
}
