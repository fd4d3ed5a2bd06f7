package retrieval

import "strings"

// Chunk 는 출처 문서를 기억하는 정책 텍스트 조각.
type Chunk struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// splitDocument 는 고정 크기/겹침(rune 단위)으로 내용을 자른다.
// overlap 은 size 보다 작아야 하며, 경계가 어절 중간에 걸려도 그대로 둔다.
// 조각 크기가 일정해야 임베딩 비용과 검색 품질이 예측 가능하다.
func splitDocument(title, content string, size, overlap int) []Chunk {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	step := size - overlap

	chunks := make([]Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, Chunk{Content: piece, Source: title})
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}
