package memory

import (
	"context"
	"time"
)

type (
	// Embedder converts text to a fixed-length vector. The engine pins the
	// dimensionality on first use and rejects malformed output afterwards.
	Embedder interface {
		Embed(ctx context.Context, text string) ([]float32, error)
		Dimensions() int
	}

	// VectorHit is one approximate-nearest-neighbor result in the index's
	// native score convention.
	VectorHit struct {
		ID    string
		Score float64
	}

	// IndexMetadata is the per-record payload mirrored into the vector
	// index so searches can filter without touching the record store.
	IndexMetadata struct {
		UserID         string
		SessionID      string
		ConversationID string
		Scope          string
		Kind           string
		Tags           []string
		CreatedAt      time.Time
		ExpiresAt      *time.Time

		// Extra carries flattened caller metadata.
		Extra map[string]string
	}

	// IndexFilter narrows a vector search or delete. Empty fields match
	// everything. Adapters push down what their backend supports; the
	// engine re-applies every filter after the record fetch.
	IndexFilter struct {
		UserID         string
		SessionID      string
		ConversationID string
		Scope          string
		Kind           string
		IDs            []string
		TimeRange      *TimeRange
		NotExpiredAt   *time.Time
	}

	// VectorIndex is the optional ANN collaborator. Any call may fail
	// transiently; the engine treats failures as "index unavailable for
	// this call" and degrades.
	VectorIndex interface {
		Insert(ctx context.Context, collection string, id string, vector []float32, meta IndexMetadata) error
		Search(ctx context.Context, collection string, vector []float32, topK int, filter IndexFilter) ([]VectorHit, error)
		Delete(ctx context.Context, collection string, filter IndexFilter) error
	}

	// QueryCache is the optional result cache. All operations are best
	// effort; a failure never surfaces past the engine.
	QueryCache interface {
		Get(ctx context.Context, tenantID string, key string) ([]MemoryRecord, bool)
		Set(ctx context.Context, tenantID string, key string, records []MemoryRecord, ttl time.Duration) error
		Invalidate(ctx context.Context, tenantID string) error
	}

	// TextIndex is the optional full-text mirror (an Elasticsearch-shaped
	// collaborator). Writes and deletes are best effort.
	TextIndex interface {
		Index(ctx context.Context, tenantID string, record *MemoryRecord) error
		Delete(ctx context.Context, tenantID string, id string) error
	}
)

// Matches evaluates the filter against index metadata. Adapters that
// cannot push a predicate into their backend use this in-process.
func (f *IndexFilter) Matches(id string, meta IndexMetadata) bool {
	if f.UserID != "" && meta.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && meta.SessionID != f.SessionID {
		return false
	}
	if f.ConversationID != "" && meta.ConversationID != f.ConversationID {
		return false
	}
	if f.Scope != "" && meta.Scope != f.Scope {
		return false
	}
	if f.Kind != "" && meta.Kind != f.Kind {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, want := range f.IDs {
			if want == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TimeRange != nil && !f.TimeRange.Contains(meta.CreatedAt) {
		return false
	}
	if f.NotExpiredAt != nil && meta.ExpiresAt != nil && meta.ExpiresAt.Before(*f.NotExpiredAt) {
		return false
	}
	return true
}
