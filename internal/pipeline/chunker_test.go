package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_Empty(t *testing.T) {
	assert.Empty(t, SplitText("", 800, 100))
	assert.Empty(t, SplitText("   \n\t  ", 800, 100))
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitText("hello world", 800, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, RawChunk{Index: 0, Text: "hello world"}, chunks[0])
}

func TestSplitText_WindowsOverlap(t *testing.T) {
	text := strings.Repeat("a", 1500)
	chunks := SplitText(text, 800, 100)

	// 起点 0, 700, 1400
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 800)
	assert.Len(t, chunks[1].Text, 800)
	assert.Len(t, chunks[2].Text, 100)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplitText_CoversEveryPosition(t *testing.T) {
	const size, overlap = 50, 10
	for _, length := range []int{1, 49, 50, 51, 90, 91, 333} {
		text := strings.Repeat("x", length)
		covered := make([]bool, length)
		for start := 0; start < length; start += size - overlap {
			for i := start; i < start+size && i < length; i++ {
				covered[i] = true
			}
		}
		for i, ok := range covered {
			assert.True(t, ok, "position %d of %d not covered", i, length)
		}
		chunks := SplitText(text, size, overlap)
		assert.NotEmpty(t, chunks)
		want := (length + (size - overlap) - 1) / (size - overlap)
		assert.Equal(t, want, len(chunks), "length %d", length)
	}
}

func TestSplitText_DropsBlankWindowsWithoutConsumingIndex(t *testing.T) {
	// 第二个窗口（起点 7）只包含空白
	text := "abcdefg" + strings.Repeat(" ", 10) + "hij"
	chunks := SplitText(text, 10, 3)

	// 起点 0:"abcdefg", 7:空白, 14:"hij"
	require.Len(t, chunks, 2)
	assert.Equal(t, RawChunk{Index: 0, Text: "abcdefg"}, chunks[0])
	assert.Equal(t, RawChunk{Index: 1, Text: "hij"}, chunks[1])
}

func TestSplitText_CountsRunes(t *testing.T) {
	text := strings.Repeat("梦", 15)
	chunks := SplitText(text, 10, 2)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("梦", 10), chunks[0].Text)
	assert.Equal(t, strings.Repeat("梦", 7), chunks[1].Text)
}

func TestSplitText_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	assert.Equal(t, SplitText(text, 800, 100), SplitText(text, 800, 100))
}

func TestSplitText_InvalidOverlapStillAdvances(t *testing.T) {
	chunks := SplitText(strings.Repeat("b", 25), 10, 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("b", 5), chunks[2].Text)
}
