// Package memory implements the hybrid memory retrieval engine: durable
// storage of short text records with vector embeddings, novelty gating on
// write, approximate vector search with a linear-scan fallback, and
// ranking by recency-weighted similarity.
//
// The Engine coordinates four collaborators. The RecordStore is
// authoritative and its failures propagate; the vector index, query cache
// and full-text mirror are optional and every failure there degrades
// gracefully. When no vector index is reachable, queries fall back to a
// bounded cosine-similarity scan over the most recent records.
//
// Scores from either search path are normalized to a single "higher =
// better" similarity convention before thresholds and ranking apply, so
// distance-reporting indexes (such as sqlite-vec) and similarity-reporting
// ones (such as chromem-go) rank identically.
package memory
