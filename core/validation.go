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
	"fmt"
)

// ValidateDocument checks that a document can be stored.
// A document with zero chunks is valid; it represents an upload whose text
// produced no sections.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyName)
	}

	dim := doc.Dimension()
	for i := range doc.Chunks {
		n := len(doc.Chunks[i].Vector)
		if n == 0 {
			return fmt.Errorf("%w: chunk %d: %w", ErrInvalidDocument, i, ErrMissingVector)
		}
		if n != dim {
			return fmt.Errorf("%w: chunk %d has %d values, want %d: %w", ErrInvalidDocument, i, n, dim, ErrMixedDimensions)
		}
	}

	return nil
}

// ValidateTurn checks that a conversation turn can be appended to the log.
func ValidateTurn(turn *ConversationTurn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}

	if err := ValidateRole(turn.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}

	if turn.Role == RoleUser && turn.HasContext() {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrUnexpectedContext)
	}

	return nil
}

// ValidateRole checks that a Role is one of the known values.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
