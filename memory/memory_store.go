package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

type (
	// InMemoryRecordStore is a map-backed RecordStore for tests, examples
	// and ephemeral deployments.
	InMemoryRecordStore struct {
		mu      sync.RWMutex
		tenants map[string]map[string]*MemoryRecord
	}
)

var (
	_ RecordStore = (*InMemoryRecordStore)(nil)
)

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		tenants: make(map[string]map[string]*MemoryRecord),
	}
}

func (s *InMemoryRecordStore) Insert(ctx context.Context, tenantID string, record *MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.tenants[tenantID]
	if !ok {
		records = make(map[string]*MemoryRecord)
		s.tenants[tenantID] = records
	}

	stored := record.clone(true)
	stored.Embedding = append([]float32(nil), record.Embedding...)
	records[record.ID] = &stored
	return nil
}

func (s *InMemoryRecordStore) FetchByIDs(ctx context.Context, tenantID string, ids []string) ([]MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.tenants[tenantID]
	results := make([]MemoryRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := records[id]; ok {
			results = append(results, rec.clone(true))
		}
	}
	return results, nil
}

func (s *InMemoryRecordStore) Delete(ctx context.Context, tenantID string, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.tenants[tenantID]
	if _, ok := records[id]; !ok {
		return false, nil
	}
	delete(records, id)
	return true, nil
}

func (s *InMemoryRecordStore) ScanRecent(ctx context.Context, tenantID string, limit int) ([]MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.tenants[tenantID]
	results := make([]MemoryRecord, 0, len(records))
	for _, rec := range records {
		results = append(results, rec.clone(true))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *InMemoryRecordStore) Count(ctx context.Context, tenantID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tenants[tenantID])), nil
}

func (s *InMemoryRecordStore) CountSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, rec := range s.tenants[tenantID] {
		if rec.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryRecordStore) CountByScopeKind(ctx context.Context, tenantID string) (map[ScopeKind]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[ScopeKind]int64)
	for _, rec := range s.tenants[tenantID] {
		counts[ScopeKind{Scope: rec.Scope, Kind: rec.Kind}]++
	}
	return counts, nil
}

func (s *InMemoryRecordStore) ListExpired(ctx context.Context, tenantID string, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, rec := range s.tenants[tenantID] {
		if rec.Expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryRecordStore) DeleteByIDs(ctx context.Context, tenantID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.tenants[tenantID]
	var deleted int64
	for _, id := range ids {
		if _, ok := records[id]; ok {
			delete(records, id)
			deleted++
		}
	}
	return deleted, nil
}
