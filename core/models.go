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


package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DefaultHeader labels body text that appears before any detected heading.
const DefaultHeader = "Introduction"

// DocumentKind identifies how raw document bytes are turned into text.
type DocumentKind int

const (
	// KindUnsupported documents extract to empty text.
	KindUnsupported DocumentKind = iota
	// KindPDF is a Portable Document Format file.
	KindPDF
	// KindDocx is an Office Open XML word processing document.
	KindDocx
	// KindText is UTF-8 plain text.
	KindText
)

func (k DocumentKind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindDocx:
		return "docx"
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleUser is a question asked by the user.
	RoleUser Role = iota + 1
	// RoleAssistant is an answer produced from retrieved context.
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Chunk is a bounded, headed piece of document text and its embedding.
type Chunk struct {
	Header string
	Text   string
	Vector []float32 // Embedding vector (populated during ingestion)
}

// WordCount returns the number of whitespace separated words in the chunk text.
func (c *Chunk) WordCount() int {
	return len(strings.Fields(c.Text))
}

// Document is an uploaded file after segmentation and embedding.
// Documents are keyed by Name and never change once stored.
type Document struct {
	Name       string
	Kind       DocumentKind
	Chunks     []Chunk
	InsertedAt time.Time // When the document was added to the store
}

// Id returns the storage key of the document, derived from its name.
func (d *Document) Id() ID {
	return IDFromContent(d.Name)
}

// Dimension returns the embedding dimension shared by the document's chunks,
// or 0 if the document has no chunks.
func (d *Document) Dimension() int {
	if len(d.Chunks) == 0 {
		return 0
	}
	return len(d.Chunks[0].Vector)
}

// ConversationTurn is one entry of the conversation log.
type ConversationTurn struct {
	Seq       ID // Position in the log, assigned on append
	Role      Role
	Content   string
	Context   *string   // Assembled context used for an assistant answer; nil for user turns
	Timestamp time.Time // When the turn was appended
}

// HasContext reports whether the turn carries an assembled context.
func (t *ConversationTurn) HasContext() bool {
	return t.Context != nil
}

// ChunkMeta identifies where a chunk came from.
type ChunkMeta struct {
	DocumentName string
	Header       string
}
