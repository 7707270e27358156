package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCitation_UsesOneBasedIndex(t *testing.T) {
	// 切片原始序号 2（从 0 开始）存储为 3
	doc := &Document{Name: "Notes.txt"}
	chunk := &Chunk{Index: 2 + 1}
	assert.Equal(t, "Notes.txt • chunk 3", ScoredChunk{Document: doc, Chunk: chunk}.Citation())
}

func TestSummaries(t *testing.T) {
	assert.NotNil(t, Summaries(nil))
	assert.Empty(t, Summaries(nil))

	docs := []*Document{
		{ID: "a", Name: "a.txt", Chunks: make([]Chunk, 2)},
		{ID: "b", Name: "b.md"},
	}
	assert.Equal(t, []DocumentSummary{
		{ID: "a", Name: "a.txt", Chunks: 2},
		{ID: "b", Name: "b.md", Chunks: 0},
	}, Summaries(docs))
}
