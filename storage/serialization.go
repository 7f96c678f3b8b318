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

package storage

import (
	"fmt"

	"github.com/poiesic/docchat/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalDocument serializes a Document to bytes, chunks included.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
// Times come back in UTC and empty slices as nil.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	doc.InsertedAt = doc.InsertedAt.UTC()
	if len(doc.Chunks) == 0 {
		doc.Chunks = nil
	}
	for i := range doc.Chunks {
		normalizeChunk(&doc.Chunks[i])
	}
	return &doc, nil
}

// MarshalChunk serializes a single Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return core.Chunk{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	normalizeChunk(&chunk)
	return chunk, nil
}

func normalizeChunk(chunk *core.Chunk) {
	if len(chunk.Vector) == 0 {
		chunk.Vector = nil
	}
}

// MarshalTurn serializes a ConversationTurn to bytes.
func MarshalTurn(turn *core.ConversationTurn) []byte {
	buf := make([]byte, core.ConversationTurnMUS.Size(*turn))
	core.ConversationTurnMUS.Marshal(*turn, buf)
	return buf
}

// UnmarshalTurn deserializes a ConversationTurn from bytes.
func UnmarshalTurn(data []byte) (*core.ConversationTurn, error) {
	turn, _, err := core.ConversationTurnMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	turn.Timestamp = turn.Timestamp.UTC()
	return &turn, nil
}
