// Package retrieval 은 정책 문서 코퍼스 위에 프로세스 시작 시 한 번 구축되는
// 읽기 전용 의미 검색 인덱스를 제공한다.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/seoyun-dev/carecall/backend/internal/model/policy"
)

// Options 는 인덱스 구축과 검색 동작을 제어한다.
type Options struct {
	TopK         int
	MinScore     float64
	ChunkSize    int
	ChunkOverlap int
}

type indexedChunk struct {
	chunk  Chunk
	vector []float64
}

// Retriever 는 질의와 가장 관련 있는 정책 조각을 찾는다. embedder 가 없으면
// 키워드 겹침 점수로 동작하는 축소 모드가 된다.
type Retriever struct {
	chunks   []indexedChunk
	embedder embedding.Embedder
	topK     int
	minScore float64
}

// NewRetriever 는 코퍼스를 조각내고 (가능하면) 임베딩해 인덱스를 만든다.
// 빈 코퍼스는 오류가 아니며, 검색 결과가 항상 비게 될 뿐이다.
func NewRetriever(ctx context.Context, store policy.Store, embedder embedding.Embedder, opts Options) (*Retriever, error) {
	if opts.TopK < 1 {
		opts.TopK = 4
	}

	docs := store.List()
	chunks := make([]Chunk, 0, len(docs)*2)
	for _, doc := range docs {
		chunks = append(chunks, splitDocument(doc.Title, doc.Content, opts.ChunkSize, opts.ChunkOverlap)...)
	}

	r := &Retriever{
		chunks:   make([]indexedChunk, 0, len(chunks)),
		embedder: embedder,
		topK:     opts.TopK,
		minScore: opts.MinScore,
	}

	if embedder == nil {
		log.Printf("[retrieval] no embedder configured, falling back to keyword scoring over %d chunks", len(chunks))
		for _, c := range chunks {
			r.chunks = append(r.chunks, indexedChunk{chunk: c})
		}
		// 키워드 점수는 임베딩 유사도와 스케일이 달라 최소 점수 기준을 끈다.
		r.minScore = 0
		return r, nil
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}

		vectors, err := embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed policy corpus: %w", err)
		}
		if len(vectors) != len(chunks) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}

		for i, c := range chunks {
			r.chunks = append(r.chunks, indexedChunk{chunk: c, vector: vectors[i]})
		}
	}

	log.Printf("[retrieval] policy index ready: %d documents, %d chunks", len(docs), len(r.chunks))
	return r, nil
}

// Retrieve 는 관련도 내림차순 상위 k 개 조각을 돌려준다. 기준 점수를 넘는
// 조각이 없으면 빈 슬라이스를 돌려주며 이는 오류가 아니다.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Chunk, error) {
	if len(r.chunks) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	scored := make([]Chunk, 0, len(r.chunks))

	if r.embedder != nil {
		vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("embedder returned %d vectors for query", len(vectors))
		}

		for _, item := range r.chunks {
			c := item.chunk
			c.Score = cosineSimilarity(vectors[0], item.vector)
			scored = append(scored, c)
		}
	} else {
		for _, item := range r.chunks {
			c := item.chunk
			c.Score = keywordOverlap(query, c.Content)
			scored = append(scored, c)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	result := make([]Chunk, 0, r.topK)
	for _, c := range scored {
		if len(result) == r.topK {
			break
		}
		if c.Score <= r.minScore && r.minScore > 0 {
			continue
		}
		if c.Score <= 0 {
			continue
		}
		result = append(result, c)
	}

	return result, nil
}

// ContextBlock 은 검색 순서를 유지한 채 조각들을 고정 구분자로 잇는다.
func ContextBlock(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keywordOverlap 은 질의 어절이 조각에 몇 개나 등장하는지 센다.
func keywordOverlap(query, content string) float64 {
	loweredContent := strings.ToLower(content)
	hits := 0.0
	for _, field := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(field)) < 2 {
			continue
		}
		if strings.Contains(loweredContent, field) {
			hits++
		}
	}
	return hits
}
