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

import "errors"

var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidTurn indicates a ConversationTurn failed validation.
	ErrInvalidTurn = errors.New("invalid conversation turn")

	// ErrEmptyName indicates the document Name field is empty.
	ErrEmptyName = errors.New("document name cannot be empty")

	// ErrMissingVector indicates a chunk has no embedding.
	ErrMissingVector = errors.New("chunk has no embedding")

	// ErrMixedDimensions indicates chunks of one document have different embedding sizes.
	ErrMixedDimensions = errors.New("chunks have mixed embedding dimensions")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUnexpectedContext indicates a user turn carries an assembled context.
	ErrUnexpectedContext = errors.New("only assistant turns carry context")
)
