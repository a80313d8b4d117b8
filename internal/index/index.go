package index

import (
	"errors"
	"fmt"
	"sort"

	"compliance/internal/domain"
)

// ErrIndexEmpty means the index was built from, or queried over, zero documents.
var ErrIndexEmpty = errors.New("retrieval index has no documents")

const defaultTopK = 3

// Index answers top-k nearest-rule queries over the rule document corpus
// using brute-force cosine similarity. It is built once at startup and
// immutable afterwards, so concurrent Query calls need no locking;
// rebuilding means constructing a new Index.
type Index struct {
	embedder domain.Embedder
	docs     []domain.RuleDocument
	vectors  [][]float64
	topK     int
}

// Build prepares the embedder over the document corpus, embeds every
// document and returns the ready index. topK fixes the default retrieval
// depth; non-positive values fall back to 3.
func Build(docs []domain.RuleDocument, embedder domain.Embedder, topK int) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrIndexEmpty
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	corpus := make([]string, len(docs))
	for i, d := range docs {
		corpus[i] = d.Content
	}
	if err := embedder.Prepare(corpus); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors := make([][]float64, len(docs))
	for i, d := range docs {
		vec, err := embedder.Embed(d.Content)
		if err != nil {
			return nil, fmt.Errorf("embed document %q: %w", d.EventName, err)
		}
		vectors[i] = vec
	}
	return &Index{embedder: embedder, docs: docs, vectors: vectors, topK: topK}, nil
}

// TopK returns the retrieval depth fixed at construction.
func (ix *Index) TopK() int { return ix.topK }

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Query returns up to k documents ranked by descending cosine similarity to
// the input text, ties broken by original corpus order. k <= 0 uses the
// default fixed at construction; k larger than the corpus returns the whole
// corpus, never an error.
func (ix *Index) Query(text string, k int) ([]domain.ScoredDocument, error) {
	if len(ix.docs) == 0 {
		return nil, ErrIndexEmpty
	}
	if k <= 0 {
		k = ix.topK
	}
	if k > len(ix.docs) {
		k = len(ix.docs)
	}
	vec, err := ix.embedder.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	scores := make([]float64, len(ix.vectors))
	for i := range ix.vectors {
		scores[i] = dot(ix.vectors[i], vec)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	// Stable sort keeps corpus order for equal scores.
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})
	results := make([]domain.ScoredDocument, 0, k)
	for i := 0; i < k; i++ {
		j := idxs[i]
		results = append(results, domain.ScoredDocument{Document: ix.docs[j], Score: scores[j]})
	}
	return results, nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
