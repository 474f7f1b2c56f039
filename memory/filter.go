package memory

import (
	"time"
)

// buildIndexFilter translates the query's declarative filters into the
// form handed to the vector index. Time range and expiry ride along for
// backends that can push them down.
func buildIndexFilter(q *MemoryQuery, now time.Time) IndexFilter {
	return IndexFilter{
		UserID:         q.UserID,
		SessionID:      q.SessionID,
		ConversationID: q.ConversationID,
		Scope:          q.Scope,
		Kind:           q.Kind,
		TimeRange:      q.TimeRange,
		NotExpiredAt:   &now,
	}
}

// recordMatches applies every declarative filter of the query to a full
// record. The vector index may have pushed some of these down already;
// re-checking keeps correctness independent of adapter capabilities.
func recordMatches(rec *MemoryRecord, q *MemoryQuery, now time.Time) bool {
	if rec.Expired(now) {
		return false
	}
	if q.UserID != "" && rec.UserID != q.UserID {
		return false
	}
	if q.SessionID != "" && rec.SessionID != q.SessionID {
		return false
	}
	if q.ConversationID != "" && rec.ConversationID != q.ConversationID {
		return false
	}
	if q.Scope != "" && rec.Scope != q.Scope {
		return false
	}
	if q.Kind != "" && rec.Kind != q.Kind {
		return false
	}
	if !hasAllTags(rec.Tags, q.Tags) {
		return false
	}
	if q.TimeRange != nil && !q.TimeRange.Contains(rec.CreatedAt) {
		return false
	}
	for key, want := range q.MetadataFilter {
		got, ok := rec.Metadata[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// hasAllTags reports whether every required tag is present.
func hasAllTags(have []string, required []string) bool {
	for _, want := range required {
		found := false
		for _, tag := range have {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
