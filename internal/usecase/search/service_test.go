package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

// fakeCorpus is an in-memory HandReader with scripted failures.
type fakeCorpus struct {
	ids          []string
	records      map[string]hand.Record
	embeddings   map[string]chunk.EmbeddingMap
	lastStrategy chunk.Strategy
	embErr       map[string]error
}

func (f *fakeCorpus) ListIDs(_ context.Context) ([]string, error) {
	return f.ids, nil
}

func (f *fakeCorpus) GetRecord(_ context.Context, id string) (hand.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return hand.Record{}, fmt.Errorf("%w: %s", domain.ErrHandNotFound, id)
	}
	return rec, nil
}

func (f *fakeCorpus) GetEmbeddings(_ context.Context, id string, strategy chunk.Strategy) (chunk.EmbeddingMap, error) {
	f.lastStrategy = strategy
	if err := f.embErr[id]; err != nil {
		return nil, err
	}
	em, ok := f.embeddings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHandNotFound, id)
	}
	return em, nil
}

// mockChunkEmbedder returns a canned embedding map, capturing the mode.
type mockChunkEmbedder struct {
	result   chunk.EmbeddingMap
	err      error
	lastMode domain.InputMode
}

func (m *mockChunkEmbedder) MapChunks(_ context.Context, _ []chunk.Chunk, mode domain.InputMode) (chunk.EmbeddingMap, error) {
	m.lastMode = mode
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockReranker struct {
	hits      []domain.RankedDocument
	err       error
	lastQuery string
	lastDocs  []string
	lastTopK  int
}

func (m *mockReranker) Rerank(_ context.Context, query string, docs []string, topK int) ([]domain.RankedDocument, error) {
	m.lastQuery = query
	m.lastDocs = docs
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func searchRecord(id string) hand.Record {
	return hand.Record{
		ID:            id,
		GameLocation:  "Online",
		Stakes:        "$1/$2",
		CallerCards:   "Ace of Clubs and Ace of Spades",
		PreflopAction: "Hero opens to $6",
	}
}

// threeHandCorpus ranks h1 > h2 > h3 against a {1,0} situation query.
func threeHandCorpus() *fakeCorpus {
	return &fakeCorpus{
		ids: []string{"h1", "h2", "h3"},
		records: map[string]hand.Record{
			"h1": searchRecord("h1"),
			"h2": searchRecord("h2"),
			"h3": searchRecord("h3"),
		},
		embeddings: map[string]chunk.EmbeddingMap{
			"h1": {chunk.TypeSituation: {1, 0}},
			"h2": {chunk.TypeSituation: {1, 1}},
			"h3": {chunk.TypeSituation: {0, 1}},
		},
		embErr: map[string]error{},
	}
}

func queryEmbedder() *mockChunkEmbedder {
	return &mockChunkEmbedder{
		result: chunk.EmbeddingMap{chunk.TypeSituation: {1, 0}},
	}
}

const testQuery = "button opens to $15 with two black aces"

func TestSearch_RanksDescending(t *testing.T) {
	corpus := threeHandCorpus()
	embedder := queryEmbedder()
	svc := New(corpus, embedder, zap.NewNop())

	results, err := svc.Search(context.Background(), testQuery, Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantOrder := []string{"h1", "h2", "h3"}
	for i, want := range wantOrder {
		if results[i].HandID != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].HandID, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not descending at %d: %f > %f",
				i, results[i].Score, results[i-1].Score)
		}
	}
	if embedder.lastMode != domain.ModeQuery {
		t.Errorf("embedder mode = %q, want query", embedder.lastMode)
	}
}

func TestSearch_TruncatesToNResults(t *testing.T) {
	svc := New(threeHandCorpus(), queryEmbedder(), zap.NewNop())

	results, err := svc.Search(context.Background(), testQuery, Options{NResults: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].HandID != "h1" || results[1].HandID != "h2" {
		t.Errorf("results = %v", results)
	}
}

func TestSearch_StableTieOrder(t *testing.T) {
	corpus := threeHandCorpus()
	// All three candidates identical: stage-1 ties keep corpus order.
	for _, id := range corpus.ids {
		corpus.embeddings[id] = chunk.EmbeddingMap{chunk.TypeSituation: {1, 0}}
	}
	svc := New(corpus, queryEmbedder(), zap.NewNop())

	results, err := svc.Search(context.Background(), testQuery, Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i, want := range []string{"h1", "h2", "h3"} {
		if results[i].HandID != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].HandID, want)
		}
	}
}

func TestSearch_SkipsCandidateWithoutEmbeddings(t *testing.T) {
	corpus := threeHandCorpus()
	corpus.embErr["h2"] = errors.New("no embeddings stored")
	svc := New(corpus, queryEmbedder(), zap.NewNop())

	results, err := svc.Search(context.Background(), testQuery, Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.HandID == "h2" {
			t.Error("h2 should have been skipped")
		}
	}
}

func TestSearch_SkipsCandidateWithNoOverlap(t *testing.T) {
	corpus := threeHandCorpus()
	corpus.embeddings["h2"] = chunk.EmbeddingMap{chunk.TypeRiverDecis: {1, 0}}
	svc := New(corpus, queryEmbedder(), zap.NewNop())

	results, err := svc.Search(context.Background(), testQuery, Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestSearch_EmbedderFailureAborts(t *testing.T) {
	embedder := &mockChunkEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := New(threeHandCorpus(), embedder, zap.NewNop())

	_, err := svc.Search(context.Background(), testQuery, Options{})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("error = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestSearch_RejectsNegativeWeights(t *testing.T) {
	svc := New(threeHandCorpus(), queryEmbedder(), zap.NewNop())

	_, err := svc.Search(context.Background(), testQuery, Options{
		Weights: chunk.Weights{chunk.TypeSituation: -1},
	})
	if !errors.Is(err, domain.ErrNegativeWeight) {
		t.Errorf("error = %v, want ErrNegativeWeight", err)
	}
}

func TestSearch_RejectsUnknownStrategy(t *testing.T) {
	svc := New(threeHandCorpus(), queryEmbedder(), zap.NewNop())

	_, err := svc.Search(context.Background(), testQuery, Options{
		Strategy: chunk.Strategy("semantic"),
	})
	if !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Errorf("error = %v, want ErrUnknownStrategy", err)
	}
}

func TestSearch_UsesConfiguredDefaultStrategy(t *testing.T) {
	corpus := threeHandCorpus()
	// street_based corpus embeddings keyed by context instead of situation
	for _, id := range corpus.ids {
		corpus.embeddings[id] = chunk.EmbeddingMap{chunk.TypeContext: {1, 0}}
	}
	embedder := &mockChunkEmbedder{
		result: chunk.EmbeddingMap{chunk.TypeContext: {1, 0}},
	}
	svc := New(corpus, embedder, zap.NewNop()).
		WithDefaultStrategy(chunk.StreetBased)

	_, err := svc.Search(context.Background(), testQuery, Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if corpus.lastStrategy != chunk.StreetBased {
		t.Errorf("corpus queried with %q, want street_based", corpus.lastStrategy)
	}
}

func TestSearch_RerankerReorders(t *testing.T) {
	corpus := threeHandCorpus()
	reranker := &mockReranker{
		hits: []domain.RankedDocument{{Index: 1, Score: 0.97}},
	}
	svc := New(corpus, queryEmbedder(), zap.NewNop()).WithReranker(reranker)

	results, err := svc.Search(context.Background(), testQuery, Options{
		NResults:    1,
		UseReranker: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// Oversample 2 * n 1 = pool of the top two stage-1 candidates.
	if len(reranker.lastDocs) != 2 {
		t.Fatalf("reranker got %d documents, want 2", len(reranker.lastDocs))
	}
	if reranker.lastQuery != testQuery {
		t.Errorf("reranker query = %q", reranker.lastQuery)
	}
	if reranker.lastTopK != 1 {
		t.Errorf("reranker topK = %d, want 1", reranker.lastTopK)
	}

	// Index 1 of the pool is h2: the reranker promoted it over h1.
	if len(results) != 1 || results[0].HandID != "h2" {
		t.Fatalf("results = %v, want [h2]", results)
	}
	if results[0].Score != 0.97 {
		t.Errorf("score = %f, want reranker relevance 0.97", results[0].Score)
	}
}

func TestSearch_RerankerFailureFallsBackToStage1(t *testing.T) {
	reranker := &mockReranker{err: domain.ErrRerankerUnavailable}
	svc := New(threeHandCorpus(), queryEmbedder(), zap.NewNop()).WithReranker(reranker)

	results, err := svc.Search(context.Background(), testQuery, Options{
		NResults:    2,
		UseReranker: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 || results[0].HandID != "h1" || results[1].HandID != "h2" {
		t.Errorf("results = %v, want stage-1 [h1 h2]", results)
	}
}

func TestSearch_RerankerOutOfRangeIndexesIgnored(t *testing.T) {
	reranker := &mockReranker{
		hits: []domain.RankedDocument{{Index: 99, Score: 0.9}},
	}
	svc := New(threeHandCorpus(), queryEmbedder(), zap.NewNop()).WithReranker(reranker)

	results, err := svc.Search(context.Background(), testQuery, Options{
		NResults:    1,
		UseReranker: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// All hits invalid: stage-1 ordering survives.
	if len(results) != 1 || results[0].HandID != "h1" {
		t.Errorf("results = %v, want stage-1 [h1]", results)
	}
}

func TestSearch_RerankerNotUsedWithoutFlag(t *testing.T) {
	reranker := &mockReranker{hits: []domain.RankedDocument{{Index: 2, Score: 0.9}}}
	svc := New(threeHandCorpus(), queryEmbedder(), zap.NewNop()).WithReranker(reranker)

	results, err := svc.Search(context.Background(), testQuery, Options{NResults: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].HandID != "h1" {
		t.Errorf("results = %v, want stage-1 [h1]", results)
	}
	if reranker.lastDocs != nil {
		t.Error("reranker was called without use_reranker")
	}
}

func TestHydrate(t *testing.T) {
	corpus := threeHandCorpus()
	delete(corpus.records, "h2")
	svc := New(corpus, queryEmbedder(), zap.NewNop())

	hydrated := svc.Hydrate(context.Background(), []Result{
		{HandID: "h1", Score: 0.9},
		{HandID: "h2", Score: 0.8},
	})

	if len(hydrated) != 1 {
		t.Fatalf("got %d hydrated results, want 1", len(hydrated))
	}
	if hydrated[0].HandID != "h1" || hydrated[0].Hand.ID != "h1" {
		t.Errorf("hydrated = %+v", hydrated[0])
	}
}
