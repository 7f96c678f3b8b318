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


// Package storage defines the repository interfaces for a chat session.
//
// A session keeps two independent collections:
//
//   - DocumentRepository: the uploaded documents with their chunks and
//     embeddings, keyed by document name
//   - ConversationRepository: the ordered log of user and assistant turns
//
// Both are append-only. Nothing outlives the session; the badger
// sub-package keeps everything in an in-memory BadgerDB instance.
//
// # Constructor Return Type Pattern
//
// Repository constructors in storage/badger return concrete types so the
// session can manage their lifecycle, while consumers depend only on the
// interfaces declared here.
//
// # Usage
//
//	store, err := badger.OpenMemoryStore(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	result, err := store.Documents.AddDocument(ctx, doc)
//	if result == storage.AlreadyExists {
//	    // report the upload as skipped
//	}
//
// # Thread Safety
//
// All repository implementations are safe for concurrent access from
// multiple goroutines.
package storage
