package memory

import (
	"context"
	"time"
)

// RecordStore is the authoritative durable store for memory records.
// Failures here are fatal to the surrounding engine call, unlike the
// best-effort collaborators.
type RecordStore interface {
	Insert(ctx context.Context, tenantID string, record *MemoryRecord) error

	// FetchByIDs returns the records that exist among ids, in no
	// particular order. The caller re-orders.
	FetchByIDs(ctx context.Context, tenantID string, ids []string) ([]MemoryRecord, error)

	// Delete removes one record and reports whether it existed.
	Delete(ctx context.Context, tenantID string, id string) (bool, error)

	// ScanRecent returns up to limit records ordered by CreatedAt
	// descending, embeddings included.
	ScanRecent(ctx context.Context, tenantID string, limit int) ([]MemoryRecord, error)

	Count(ctx context.Context, tenantID string) (int64, error)
	CountSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
	CountByScopeKind(ctx context.Context, tenantID string) (map[ScopeKind]int64, error)

	// ListExpired returns ids of records whose TTL passed before now.
	ListExpired(ctx context.Context, tenantID string, now time.Time) ([]string, error)
	DeleteByIDs(ctx context.Context, tenantID string, ids []string) (int64, error)
}
