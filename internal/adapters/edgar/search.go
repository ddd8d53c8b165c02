package edgar

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"stockcrew/internal/adapters/embeddings"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

const (
	passageSize    = 1200
	passageOverlap = 200
	// candidatePool bounds how many lexical hits are re-ranked with embeddings
	candidatePool = 40
)

// Ranker orders passages by relevance to a question
type Ranker interface {
	Rank(ctx context.Context, question string, passages []string, k int) ([]string, error)
}

// Searcher answers "what to look for" questions against the latest filing of a ticker
type Searcher struct {
	client *Client
	ranker Ranker
	k      int
	log    *logger.Logger

	mu    sync.Mutex
	texts map[string][]string // accession -> passages
}

// NewSearcher creates a filing searcher returning k passages per question
func NewSearcher(client *Client, ranker Ranker, k int) *Searcher {
	if ranker == nil {
		ranker = LexicalRanker{}
	}
	if k <= 0 {
		k = 5
	}
	return &Searcher{
		client: client,
		ranker: ranker,
		k:      k,
		log:    logger.Get().With("component", "filing_search"),
		texts:  make(map[string][]string),
	}
}

// Search returns the most relevant passages of the latest form filing
func (s *Searcher) Search(ctx context.Context, ticker, form, question string) (Filing, []string, error) {
	filing, err := s.client.LatestFiling(ctx, ticker, form)
	if err != nil {
		return Filing{}, nil, err
	}

	passages, err := s.passages(ctx, filing)
	if err != nil {
		return filing, nil, err
	}

	if strings.TrimSpace(question) == "" {
		question = "financial results risks outlook"
	}

	top, err := s.ranker.Rank(ctx, question, passages, s.k)
	if err != nil {
		return filing, nil, errors.Wrap(err, "rank passages")
	}

	s.log.Debugw("Filing search", "ticker", filing.Ticker, "form", form, "passages", len(passages), "returned", len(top))
	return filing, top, nil
}

func (s *Searcher) passages(ctx context.Context, f Filing) ([]string, error) {
	s.mu.Lock()
	cached, ok := s.texts[f.AccessionNumber]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	text, err := s.client.FilingText(ctx, f)
	if err != nil {
		return nil, err
	}
	passages := SplitPassages(text, passageSize, passageOverlap)

	s.mu.Lock()
	s.texts[f.AccessionNumber] = passages
	s.mu.Unlock()
	return passages, nil
}

// SplitPassages cuts text into overlapping windows on word boundaries
func SplitPassages(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		out   []string
		start int
	)
	for start < len(words) {
		length := 0
		end := start
		for end < len(words) && length+len(words[end])+1 <= size {
			length += len(words[end]) + 1
			end++
		}
		if end == start {
			end = start + 1
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}

		// step back roughly overlap characters
		back, next := 0, end
		for next > start+1 && back < overlap {
			next--
			back += len(words[next]) + 1
		}
		start = next
	}
	return out
}

// LexicalRanker scores passages with BM25 over the question terms
type LexicalRanker struct{}

func (LexicalRanker) Rank(_ context.Context, question string, passages []string, k int) ([]string, error) {
	return topK(passages, bm25(question, passages), k), nil
}

// EmbeddingRanker narrows candidates lexically, then orders them by embedding similarity
type EmbeddingRanker struct {
	Provider embeddings.Provider
}

func (r EmbeddingRanker) Rank(ctx context.Context, question string, passages []string, k int) ([]string, error) {
	candidates := topK(passages, bm25(question, passages), candidatePool)
	if len(candidates) == 0 {
		return nil, nil
	}

	vecs, err := r.Provider.GenerateBatchEmbeddings(ctx, append([]string{question}, candidates...))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = embeddings.Cosine(vecs[0], vecs[i+1])
	}
	return topK(candidates, scores, k), nil
}

func topK(passages []string, scores []float64, k int) []string {
	idx := make([]int, len(passages))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	if k > len(idx) {
		k = len(idx)
	}
	out := make([]string, 0, k)
	for _, i := range idx[:k] {
		out = append(out, passages[i])
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func bm25(question string, passages []string) []float64 {
	const k1, b = 1.2, 0.75

	terms := tokenize(question)
	docs := make([]map[string]int, len(passages))
	lengths := make([]int, len(passages))
	df := make(map[string]int)
	total := 0

	for i, p := range passages {
		tf := make(map[string]int)
		toks := tokenize(p)
		for _, t := range toks {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		docs[i] = tf
		lengths[i] = len(toks)
		total += len(toks)
	}

	scores := make([]float64, len(passages))
	if len(passages) == 0 || total == 0 {
		return scores
	}
	avg := float64(total) / float64(len(passages))
	n := float64(len(passages))

	for i, tf := range docs {
		for _, t := range terms {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[t])+0.5)/(float64(df[t])+0.5))
			scores[i] += idf * f * (k1 + 1) / (f + k1*(1-b+b*float64(lengths[i])/avg))
		}
	}
	return scores
}
