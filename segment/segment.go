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


// Package segment splits plain text into headed, word-bounded chunks.
//
// Headings are detected with a deliberately simple heuristic: a trimmed,
// non-blank line is a heading when all of its cased letters are upper-case,
// or when it ends with a colon. Chunk boundaries downstream depend on this
// exact rule.
package segment

import (
	"strings"
	"unicode"

	"github.com/poiesic/docchat/core"
)

// DefaultMaxChunkWords is used when a non-positive chunk size is requested.
const DefaultMaxChunkWords = 500

// Segment splits text into chunks grouped under detected headings.
// Each chunk holds at most maxChunkWords words; the returned chunks carry no
// embeddings. Text without headings becomes a single "Introduction" section.
func Segment(text string, maxChunkWords int) []core.Chunk {
	if maxChunkWords <= 0 {
		maxChunkWords = DefaultMaxChunkWords
	}

	var (
		chunks []core.Chunk
		header = core.DefaultHeader
		body   []string
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if IsHeading(line) {
			if len(body) > 0 {
				chunks = appendSection(chunks, header, body, maxChunkWords)
				body = body[:0]
			}
			header = line
			continue
		}
		if line != "" {
			body = append(body, line)
		}
	}

	if len(body) > 0 {
		chunks = appendSection(chunks, header, body, maxChunkWords)
	}

	return chunks
}

// IsHeading reports whether a trimmed line is treated as a section heading.
func IsHeading(line string) bool {
	return isUpper(line) || strings.HasSuffix(line, ":")
}

// isUpper reports whether s has at least one upper-case character and no
// lower-case or title-case ones. Upper and lower case include the
// Other_Uppercase and Other_Lowercase properties, so "Ⅻ" is upper case and
// "ª" is lower case.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.Is(unicode.Other_Lowercase, r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r), unicode.Is(unicode.Other_Uppercase, r):
			cased = true
		}
	}
	return cased
}

// appendSection closes a section, emitting one chunk per piece of its body.
func appendSection(chunks []core.Chunk, header string, body []string, maxWords int) []core.Chunk {
	for _, piece := range SplitWords(strings.Join(body, "\n"), maxWords) {
		chunks = append(chunks, core.Chunk{
			Header: header,
			Text:   piece,
		})
	}
	return chunks
}

// SplitWords breaks text into pieces of up to maxWords whitespace-delimited
// words, joined by single spaces. Pieces do not overlap and keep source order.
func SplitWords(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxChunkWords
	}

	words := strings.Fields(text)
	pieces := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		pieces = append(pieces, strings.Join(words[start:end], " "))
	}
	return pieces
}
