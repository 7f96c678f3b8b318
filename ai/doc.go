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


// Package ai provides abstractions for the AI services used by docchat.
//
// Two services are involved in answering a question about uploaded documents:
//
//   - Embedder: maps chunks and questions to fixed-dimension vectors
//   - Generator: turns a prompt with retrieved context into an answer
//
// AIProvider aggregates both for initialization and lifecycle management.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo-backed services for OpenAI, Azure OpenAI and
//     OpenAI-compatible servers such as Ollama
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and count calls.
//
// # Generation Results
//
// A Generator never returns a Go error. Failures travel inside a Result so the
// caller can show the failure as the answer text and still record the turn:
//
//	res := provider.Generator().Generate(ctx, prompt)
//	if !res.OK() {
//	    answer = "Error from language model: " + res.Err.Error()
//	}
package ai
