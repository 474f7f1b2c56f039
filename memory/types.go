package memory

import (
	"time"
)

type (
	// MemoryRecord is a single stored memory. Records are created via
	// Engine.Store, are read-only afterwards and disappear only through
	// Engine.Delete or TTL pruning.
	MemoryRecord struct {
		ID      string `json:"id"`
		Content string `json:"content"`

		// Embedding is populated on query results only when the query
		// asked for it.
		Embedding []float32 `json:"embedding,omitempty"`

		Metadata Metadata `json:"metadata,omitempty"`

		// Scope and Kind classify the record and partition the surprise
		// check. They are always mirrored into the vector index metadata.
		Scope string `json:"scope,omitempty"`
		Kind  string `json:"kind,omitempty"`

		UserID         string   `json:"userId,omitempty"`
		SessionID      string   `json:"sessionId,omitempty"`
		ConversationID string   `json:"conversationId,omitempty"`
		Tags           []string `json:"tags,omitempty"`

		CreatedAt time.Time  `json:"createdAt"`
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`

		// SimilarityScore is the recency-weighted relevance of this record
		// for the query that returned it. Never persisted.
		SimilarityScore float64 `json:"similarityScore,omitempty"`
	}

	// StoreInput describes a memory to store.
	StoreInput struct {
		Content        string
		Scope          string
		Kind           string
		UserID         string
		SessionID      string
		ConversationID string
		Tags           []string
		Metadata       Metadata

		// TTLHours overrides the configured default lifetime. Zero keeps
		// the default, a negative value stores the record without expiry.
		TTLHours int
	}

	// MemoryQuery describes a retrieval request. All filters are optional
	// and conjunctive.
	MemoryQuery struct {
		Text string

		UserID         string
		SessionID      string
		ConversationID string
		Scope          string
		Kind           string

		// Tags must all be present on a record for it to match.
		Tags []string

		// MetadataFilter matches records whose metadata carries equal
		// values for every listed key.
		MetadataFilter Metadata

		// TimeRange bounds CreatedAt, inclusive on both ends.
		TimeRange *TimeRange

		TopK int

		// SimilarityThreshold is expressed in the engine's configured
		// metric mode convention and converted internally.
		SimilarityThreshold float64

		IncludeEmbeddings bool
	}

	TimeRange struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	ScopeKind struct {
		Scope string `json:"scope"`
		Kind  string `json:"kind"`
	}

	// StatsSnapshot summarizes a tenant's stored memories.
	StatsSnapshot struct {
		TotalRecords   int64               `json:"totalRecords"`
		RecordsLast24h int64               `json:"recordsLast24h"`
		ByScopeKind    map[ScopeKind]int64 `json:"byScopeKind"`
		CollectionName string              `json:"collectionName"`
		Metrics        MetricsSnapshot     `json:"metrics"`
	}
)

// Contains reports whether the range includes t (inclusive bounds).
func (r *TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Expired reports whether the record's TTL has passed at the given time.
func (m *MemoryRecord) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// clone returns a copy safe to hand out or cache. Embeddings are shared
// only when requested; records are otherwise immutable.
func (m *MemoryRecord) clone(includeEmbedding bool) MemoryRecord {
	out := *m
	if !includeEmbedding {
		out.Embedding = nil
	}
	out.Tags = append([]string(nil), m.Tags...)
	if m.Metadata != nil {
		out.Metadata = make(Metadata, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
