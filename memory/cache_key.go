package memory

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

type (
	// canonicalQuery is the deterministic serialization of a MemoryQuery
	// used for cache keying. Filter keys are sorted so equal queries hash
	// equal regardless of map iteration order.
	canonicalQuery struct {
		Text                string        `json:"text"`
		UserID              string        `json:"userId"`
		SessionID           string        `json:"sessionId"`
		ConversationID      string        `json:"conversationId"`
		Scope               string        `json:"scope"`
		Kind                string        `json:"kind"`
		Tags                []string      `json:"tags"`
		Metadata            []metaKV      `json:"metadata"`
		TimeRange           []string      `json:"timeRange"`
		TopK                int           `json:"topK"`
		SimilarityThreshold float64       `json:"similarityThreshold"`
		IncludeEmbeddings   bool          `json:"includeEmbeddings"`
	}

	metaKV struct {
		Key   string    `json:"k"`
		Value MetaValue `json:"v"`
	}
)

// queryCacheKey hashes the full query into a stable cache key. Tenant
// scoping is the cache implementation's concern.
func queryCacheKey(q *MemoryQuery) string {
	cq := canonicalQuery{
		Text:                q.Text,
		UserID:              q.UserID,
		SessionID:           q.SessionID,
		ConversationID:      q.ConversationID,
		Scope:               q.Scope,
		Kind:                q.Kind,
		TopK:                q.TopK,
		SimilarityThreshold: q.SimilarityThreshold,
		IncludeEmbeddings:   q.IncludeEmbeddings,
	}

	cq.Tags = append([]string(nil), q.Tags...)
	sort.Strings(cq.Tags)

	for key, value := range q.MetadataFilter {
		cq.Metadata = append(cq.Metadata, metaKV{Key: key, Value: value})
	}
	sort.Slice(cq.Metadata, func(i, j int) bool { return cq.Metadata[i].Key < cq.Metadata[j].Key })

	if q.TimeRange != nil {
		cq.TimeRange = []string{
			q.TimeRange.Start.UTC().Format(time.RFC3339Nano),
			q.TimeRange.End.UTC().Format(time.RFC3339Nano),
		}
	}

	payload, err := json.Marshal(cq)
	if err != nil {
		// Marshal of the canonical form cannot realistically fail; fall
		// back to the raw text so caching degrades instead of breaking.
		payload = []byte(q.Text)
	}

	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}
