// Package service contains pure domain logic: text chunking and file-set
// reconciliation. Nothing in this package performs I/O.
package service

import "strings"

// TextChunk is one contiguous, token-bounded slice of a file's text.
// Line numbers are 1-based and inclusive.
type TextChunk struct {
	Content    string
	StartLine  int
	EndLine    int
	TokenCount int
}

// TokenCountFunc counts the tokens of a piece of text. Implementations are
// expected to fall back to a word count when the primary counter fails.
type TokenCountFunc func(text string) int

// ChunkText splits text into ordered overlapping chunks bounded by a token
// budget.
//
// The algorithm is greedy and line-granular: lines accumulate into a buffer
// until adding the next line would exceed maxTokens, at which point the
// buffer closes into a chunk and a new buffer starts seeded with trailing
// lines of the closed chunk whose combined token cost stays within
// overlapTokens. The final buffer is always emitted, and a single line
// larger than maxTokens still becomes its own chunk; no line is ever split
// or dropped.
func ChunkText(text string, maxTokens, overlapTokens int, countTokens TokenCountFunc) []TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	var chunks []TextChunk

	var currentChunk []string
	currentLineStart := 1
	currentTokens := 0

	for i, line := range lines {
		lineNumber := i + 1
		lineTokens := countTokens(line + "\n")

		if currentTokens+lineTokens > maxTokens && len(currentChunk) > 0 {
			chunks = append(chunks, TextChunk{
				Content:    strings.Join(currentChunk, "\n"),
				StartLine:  currentLineStart,
				EndLine:    lineNumber - 1,
				TokenCount: currentTokens,
			})

			// Seed the next buffer with trailing lines of the closed
			// chunk, walking backward while the overlap budget holds.
			var overlapLines []string
			overlapTokenCount := 0
			for j := len(currentChunk) - 1; j >= 0; j-- {
				tokens := countTokens(currentChunk[j] + "\n")
				if overlapTokenCount+tokens > overlapTokens {
					break
				}
				overlapLines = append([]string{currentChunk[j]}, overlapLines...)
				overlapTokenCount += tokens
			}

			currentChunk = overlapLines
			currentTokens = overlapTokenCount
			currentLineStart = lineNumber - len(overlapLines)
		}

		currentChunk = append(currentChunk, line)
		currentTokens += lineTokens
	}

	if len(currentChunk) > 0 {
		chunks = append(chunks, TextChunk{
			Content:    strings.Join(currentChunk, "\n"),
			StartLine:  currentLineStart,
			EndLine:    len(lines),
			TokenCount: currentTokens,
		})
	}

	return chunks
}
