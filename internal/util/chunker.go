package util

import (
	"fmt"
	"strings"
)

// ChunkText splits text into overlapping windows of size characters. Each
// window starts size-overlap characters after the previous one and the last
// window ends exactly at the end of the text. Windows are trimmed and dropped
// when nothing is left.
func ChunkText(text string, size, overlap int) ([]string, error) {
	runes := []rune(text)
	bounds, err := ChunkBounds(len(runes), size, overlap)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(bounds))
	for _, b := range bounds {
		part := strings.TrimSpace(string(runes[b[0]:b[1]]))
		if part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// ChunkBounds returns the untrimmed [start, end) rune offsets of every window.
func ChunkBounds(textLen, size, overlap int) ([][2]int, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive: %w", size, ErrInvalidParameter)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d): %w", overlap, size, ErrInvalidParameter)
	}
	step := size - overlap
	out := make([][2]int, 0, textLen/step+1)
	for start := 0; start < textLen; start += step {
		end := start + size
		if end > textLen {
			end = textLen
		}
		out = append(out, [2]int{start, end})
		if end == textLen {
			break
		}
	}
	return out, nil
}
