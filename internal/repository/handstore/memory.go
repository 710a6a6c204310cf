package handstore

import (
	"context"
	"sync"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

// Memory is an in-memory Store for tests and single-node deployments.
// ListIDs preserves insertion order so search results are stable across
// identical runs.
type Memory struct {
	mu         sync.RWMutex
	records    map[string]hand.Record
	embeddings map[string]map[chunk.Strategy]chunk.EmbeddingMap
	order      []string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:    make(map[string]hand.Record),
		embeddings: make(map[string]map[chunk.Strategy]chunk.EmbeddingMap),
	}
}

// Put inserts or replaces a record. A replaced record keeps its original
// position in the ID order.
func (m *Memory) Put(_ context.Context, rec hand.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = rec
	return nil
}

// PutEmbeddings stores the embedding map for one (hand, strategy) pair.
func (m *Memory) PutEmbeddings(
	_ context.Context, id string, strategy chunk.Strategy, em chunk.EmbeddingMap,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return domain.ErrHandNotFound
	}
	if m.embeddings[id] == nil {
		m.embeddings[id] = make(map[chunk.Strategy]chunk.EmbeddingMap)
	}
	m.embeddings[id][strategy] = em
	return nil
}

// GetRecord returns a record by ID.
func (m *Memory) GetRecord(_ context.Context, id string) (hand.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return hand.Record{}, domain.ErrHandNotFound
	}
	return rec, nil
}

// GetEmbeddings returns the stored embedding map for one (hand, strategy) pair.
func (m *Memory) GetEmbeddings(
	_ context.Context, id string, strategy chunk.Strategy,
) (chunk.EmbeddingMap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	em, ok := m.embeddings[id][strategy]
	if !ok {
		return nil, domain.ErrHandNotFound
	}
	return em, nil
}

// ListIDs returns all hand IDs in insertion order.
func (m *Memory) ListIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids, nil
}

// Delete removes a record and its embeddings.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return domain.ErrHandNotFound
	}
	delete(m.records, id)
	delete(m.embeddings, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
