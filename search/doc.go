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


// Package search finds the document chunks most relevant to a question and
// assembles them into a context block for the language model.
//
// Retrieval works on an Index, a flattened copy of every stored chunk: the
// embeddings sit in one contiguous slice with parallel text and metadata
// slices. The Searcher rebuilds the index only when the document store's
// version changes.
//
// Chunks are ranked by cosine similarity to the query embedding. Equal
// scores keep corpus order, which is document insertion order and then
// chunk order within a document.
package search
