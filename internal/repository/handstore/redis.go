package handstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sidepot-cloud/handex/internal/db"
	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

// redisStore is the consumer interface for the Redis-backed store.
type redisStore interface {
	db.KVStore
	db.SetStore
}

// Redis persists hand records as JSON values and embedding maps as raw
// little-endian float32 vectors, one key per chunk type. The chunk-type list
// per (hand, strategy) is stored alongside so a map can be reassembled
// without scanning.
type Redis struct {
	store redisStore
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed hand store.
func NewRedis(store redisStore) *Redis {
	return &Redis{store: store}
}

// Put validates and stores a record, registering its ID.
func (r *Redis) Put(ctx context.Context, rec hand.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	if err := r.store.Set(ctx, recordKey(rec.ID), data); err != nil {
		return fmt.Errorf("store record %s: %w", rec.ID, err)
	}
	if err := r.store.SAdd(ctx, idsKey, rec.ID); err != nil {
		return fmt.Errorf("register id %s: %w", rec.ID, err)
	}
	return nil
}

// PutEmbeddings stores one vector per chunk type plus the type list.
func (r *Redis) PutEmbeddings(
	ctx context.Context, id string, strategy chunk.Strategy, em chunk.EmbeddingMap,
) error {
	types := make([]chunk.Type, 0, len(em))
	for _, t := range chunk.Vocabulary(strategy) {
		vec, ok := em[t]
		if !ok {
			continue
		}
		if err := r.store.Set(ctx, embKey(id, strategy, t), encodeVector(vec)); err != nil {
			return fmt.Errorf("store embedding %s/%s/%s: %w", id, strategy, t, err)
		}
		types = append(types, t)
	}

	typeData, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("marshal chunk types for %s: %w", id, err)
	}
	if err := r.store.Set(ctx, embTypesKey(id, strategy), typeData); err != nil {
		return fmt.Errorf("store chunk types for %s: %w", id, err)
	}
	return nil
}

// GetRecord returns a record by ID.
func (r *Redis) GetRecord(ctx context.Context, id string) (hand.Record, error) {
	data, err := r.store.Get(ctx, recordKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return hand.Record{}, domain.ErrHandNotFound
		}
		return hand.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}

	var rec hand.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return hand.Record{}, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return rec, nil
}

// GetEmbeddings reassembles the embedding map for one (hand, strategy) pair.
func (r *Redis) GetEmbeddings(
	ctx context.Context, id string, strategy chunk.Strategy,
) (chunk.EmbeddingMap, error) {
	typeData, err := r.store.Get(ctx, embTypesKey(id, strategy))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrHandNotFound
		}
		return nil, fmt.Errorf("get chunk types for %s: %w", id, err)
	}

	var types []chunk.Type
	if err := json.Unmarshal(typeData, &types); err != nil {
		return nil, fmt.Errorf("unmarshal chunk types for %s: %w", id, err)
	}

	em := make(chunk.EmbeddingMap, len(types))
	for _, t := range types {
		data, err := r.store.Get(ctx, embKey(id, strategy, t))
		if err != nil {
			return nil, fmt.Errorf("get embedding %s/%s/%s: %w", id, strategy, t, err)
		}
		vec, err := decodeVector(data)
		if err != nil {
			return nil, fmt.Errorf("decode embedding %s/%s/%s: %w", id, strategy, t, err)
		}
		em[t] = vec
	}
	return em, nil
}

// ListIDs returns all registered hand IDs, sorted. SMembers order is
// undefined, and ranking ties keep corpus iteration order, so results must
// not shuffle between identical searches.
func (r *Redis) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := r.store.SMembers(ctx, idsKey)
	if err != nil {
		return nil, fmt.Errorf("list hand ids: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a record, its embeddings, and its ID registration.
func (r *Redis) Delete(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, recordKey(id))
	if err != nil {
		return fmt.Errorf("check record %s: %w", id, err)
	}
	if !exists {
		return domain.ErrHandNotFound
	}

	for _, strategy := range chunk.Strategies() {
		for _, t := range chunk.Vocabulary(strategy) {
			if err := r.store.Del(ctx, embKey(id, strategy, t)); err != nil {
				return fmt.Errorf("delete embedding %s/%s/%s: %w", id, strategy, t, err)
			}
		}
		if err := r.store.Del(ctx, embTypesKey(id, strategy)); err != nil {
			return fmt.Errorf("delete chunk types %s/%s: %w", id, strategy, err)
		}
	}
	if err := r.store.Del(ctx, recordKey(id)); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if err := r.store.SRem(ctx, idsKey, id); err != nil {
		return fmt.Errorf("unregister id %s: %w", id, err)
	}
	return nil
}
