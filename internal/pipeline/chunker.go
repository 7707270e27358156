package pipeline

import "strings"

// RawChunk 是切分阶段产生的文本片段，Index 从 0 开始且只对保留下来的片段连续编号。
type RawChunk struct {
	Index int
	Text  string
}

// SplitText 将文本按固定窗口大小和重叠进行切分。
// 窗口与步长都以 rune 计；每个窗口去除首尾空白后为空则丢弃，且不占用序号。
func SplitText(text string, chunkSize, chunkOverlap int) []RawChunk {
	runes := []rune(text)
	if len(runes) == 0 || chunkSize <= 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	if step <= 0 {
		// 重叠不合法时退化为无重叠切分
		step = chunkSize
	}

	var chunks []RawChunk
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece == "" {
			continue
		}
		chunks = append(chunks, RawChunk{Index: len(chunks), Text: piece})
	}
	return chunks
}
