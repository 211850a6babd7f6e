package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCount is the fallback token counter used throughout these tests: one
// token per whitespace-separated word.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

func TestChunkText_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "   \n\t\n  "},
		{name: "newlines only", text: "\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, 100, 20, wordCount)
			assert.Empty(t, chunks)
		})
	}
}

func TestChunkText_SingleChunkWhenBudgetLarge(t *testing.T) {
	text := "line one\nline two\nline three"

	chunks := ChunkText(text, 1000, 100, wordCount)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, 6, chunks[0].TokenCount)
}

func TestChunkText_OversizedLineEmittedAlone(t *testing.T) {
	longLine := strings.Repeat("word ", 50)
	text := "short\n" + longLine + "\nshort again"

	chunks := ChunkText(text, 10, 0, wordCount)

	require.NotEmpty(t, chunks)
	var found bool
	for _, c := range chunks {
		if strings.Contains(c.Content, strings.TrimSpace(longLine)) {
			found = true
		}
	}
	assert.True(t, found, "oversized line must still appear in a chunk")
}

func TestChunkText_LineCoverage(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("some words on this line number\n")
	}
	text := strings.TrimSuffix(sb.String(), "\n")
	totalLines := 40

	chunks := ChunkText(text, 20, 5, wordCount)
	require.NotEmpty(t, chunks)

	covered := make(map[int]bool)
	for _, c := range chunks {
		require.LessOrEqual(t, c.StartLine, c.EndLine)
		require.GreaterOrEqual(t, c.StartLine, 1)
		require.LessOrEqual(t, c.EndLine, totalLines)
		for line := c.StartLine; line <= c.EndLine; line++ {
			covered[line] = true
		}
	}

	for line := 1; line <= totalLines; line++ {
		assert.True(t, covered[line], "line %d not covered by any chunk", line)
	}
}

func TestChunkText_TokenBudgetRespected(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("alpha beta gamma\n")
	}

	maxTokens := 12
	chunks := ChunkText(sb.String(), maxTokens, 3, wordCount)
	require.NotEmpty(t, chunks)

	// Every chunk except possibly the last stays within the budget; no
	// single line here exceeds it.
	for i, c := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, c.TokenCount, maxTokens, "chunk %d exceeds token budget", i)
	}
}

func TestChunkText_OverlapContinuity(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("one two three four\n")
	}

	overlapTokens := 8
	chunks := ChunkText(sb.String(), 16, overlapTokens, wordCount)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		curr := chunks[i]

		require.LessOrEqual(t, curr.StartLine, prev.EndLine+1,
			"chunk %d skips lines after chunk %d", i, i-1)

		overlapLineCount := prev.EndLine - curr.StartLine + 1
		if overlapLineCount <= 0 {
			continue
		}

		prevLines := strings.Split(prev.Content, "\n")
		currLines := strings.Split(curr.Content, "\n")
		require.GreaterOrEqual(t, len(prevLines), overlapLineCount)
		require.GreaterOrEqual(t, len(currLines), overlapLineCount)

		// Overlapping lines are byte-identical to the tail of the
		// previous chunk, and their token cost stays within the budget.
		tail := prevLines[len(prevLines)-overlapLineCount:]
		head := currLines[:overlapLineCount]
		assert.Equal(t, tail, head)

		overlapCost := 0
		for _, line := range head {
			overlapCost += wordCount(line + "\n")
		}
		assert.LessOrEqual(t, overlapCost, overlapTokens)
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 25; i++ {
		sb.WriteString("deterministic chunking input line\n")
	}
	text := sb.String()

	first := ChunkText(text, 15, 4, wordCount)
	second := ChunkText(text, 15, 4, wordCount)

	assert.Equal(t, first, second)
}

func TestChunkText_ZeroOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("a b c\n")
	}

	chunks := ChunkText(sb.String(), 9, 0, wordCount)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndLine+1, chunks[i].StartLine,
			"zero overlap chunks must be contiguous without sharing lines")
	}
}
