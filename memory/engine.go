package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mokiat/gog"
	"github.com/samber/lo"

	"github.com/Zeus-Eternal/AI-Karen-sub017/config"
	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

type (
	// Engine is the hybrid memory retrieval coordinator. It persists
	// records through the authoritative RecordStore, mirrors them into
	// the optional vector index, full-text index and query cache, and
	// retrieves by ANN search with a linear-scan fallback.
	//
	// Only record store failures, malformed embeddings and invalid query
	// parameters surface as errors. Every optional collaborator fails
	// open: its errors are logged and the call degrades.
	Engine struct {
		store    RecordStore
		embedder Embedder
		conf     *config.MemoryConfig
		logger   *slog.Logger

		index     VectorIndex
		cache     QueryCache
		textIndex TextIndex

		surprise *surpriseFilter
		fallback *fallbackScanner
		ranker   recencyRanker
		metrics  *engineMetrics

		// embedDim is pinned on first use (or from config) and enforced
		// on every subsequent embedding.
		embedDim atomic.Int64
	}

	Option func(*Engine)
)

func WithVectorIndex(index VectorIndex) Option {
	return func(e *Engine) { e.index = index }
}

func WithQueryCache(cache QueryCache) Option {
	return func(e *Engine) { e.cache = cache }
}

func WithTextIndex(textIndex TextIndex) Option {
	return func(e *Engine) { e.textIndex = textIndex }
}

func NewEngine(store RecordStore, embedder Embedder, conf *config.MemoryConfig, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if conf == nil {
		conf = config.NewMemoryConfig()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:    store,
		embedder: embedder,
		conf:     conf,
		logger:   logger,
		metrics:  &engineMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.embedDim.Store(int64(conf.EmbeddingDim))
	e.surprise = &surpriseFilter{
		index:      e.index,
		enabled:    conf.SurpriseEnabled,
		metricMode: conf.MetricMode,
		threshold:  normalizeThreshold(conf.MetricMode, conf.SurpriseThreshold),
		logger:     logger,
	}
	e.fallback = &fallbackScanner{store: store, scanLimit: conf.FallbackScanLimit}
	e.ranker = recencyRanker{alpha: conf.RecencyAlpha}

	return e, nil
}

// Store embeds and persists content. It returns the new record id, or an
// empty id with a nil error when the surprise filter judged the content a
// duplicate: deduplication is a deliberate no-op, not a failure.
func (e *Engine) Store(ctx context.Context, tenantID string, input StoreInput) (string, error) {
	if input.Content == "" {
		return "", errors.Wrapf(errors.ErrInvalidQuery, "content must not be empty")
	}

	vector, err := e.embed(ctx, input.Content)
	if err != nil {
		return "", err
	}

	collection := tenantCollection(tenantID)
	surpriseCtx, cancel := e.callCtx(ctx)
	novel := e.surprise.shouldStore(surpriseCtx, collection, vector, input.Scope, input.Kind)
	cancel()
	if !novel {
		e.logger.Debug("content not novel enough, skipping storage",
			slog.String("tenant", tenantID),
			slog.String("content", truncate(input.Content, 50)))
		return "", nil
	}

	now := time.Now()
	record := &MemoryRecord{
		ID:             uuid.NewString(),
		Content:        input.Content,
		Embedding:      vector,
		Metadata:       input.Metadata,
		Scope:          input.Scope,
		Kind:           input.Kind,
		UserID:         input.UserID,
		SessionID:      input.SessionID,
		ConversationID: input.ConversationID,
		Tags:           input.Tags,
		CreatedAt:      now,
		ExpiresAt:      e.expiry(now, input.TTLHours),
	}

	if err := e.store.Insert(ctx, tenantID, record); err != nil {
		return "", errors.Wrapf(err, "failed to persist memory for tenant %s", tenantID)
	}

	if e.index != nil {
		indexCtx, cancel := e.callCtx(ctx)
		if err := e.index.Insert(indexCtx, collection, record.ID, vector, indexMetadataFor(record)); err != nil {
			e.logger.Warn("vector index insert failed",
				slog.String("memory_id", record.ID),
				slog.Any("error", err))
		}
		cancel()
	}
	if e.textIndex != nil {
		if err := e.textIndex.Index(ctx, tenantID, record); err != nil {
			e.logger.Warn("full-text index insert failed",
				slog.String("memory_id", record.ID),
				slog.Any("error", err))
		}
	}
	e.invalidateCache(ctx, tenantID)

	e.metrics.memoriesStored.Add(1)
	e.logger.Debug("stored memory",
		slog.String("tenant", tenantID),
		slog.String("memory_id", record.ID))
	return record.ID, nil
}

// Query retrieves the top_k most relevant records for the query text,
// ranked by recency-weighted similarity. An empty result is not an error.
func (e *Engine) Query(ctx context.Context, tenantID string, q MemoryQuery) ([]MemoryRecord, error) {
	start := time.Now()
	e.metrics.queriesTotal.Add(1)

	if q.TopK <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidQuery, "top_k must be positive, got %d", q.TopK)
	}
	if err := validateThreshold(e.conf.MetricMode, q.SimilarityThreshold); err != nil {
		return nil, err
	}

	key := queryCacheKey(&q)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, tenantID, key); ok {
			e.metrics.queriesCached.Add(1)
			return cached, nil
		}
	}

	queryVec, err := e.embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	threshold := normalizeThreshold(e.conf.MetricMode, q.SimilarityThreshold)
	// Over-fetch so post-filtering still leaves enough candidates.
	overFetch := q.TopK * 2

	hits, err := e.searchCandidates(ctx, tenantID, &q, queryVec, threshold, overFetch, now)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []MemoryRecord{}, nil
	}

	ids := lo.Map(hits, func(h VectorHit, _ int) string { return h.ID })
	fetched, err := e.store.FetchByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch memories for tenant %s", tenantID)
	}

	byID := make(map[string]*MemoryRecord, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	// Re-order into candidate order; it seeds tie-breaking in the ranker.
	scores := make(map[string]float64, len(hits))
	ordered := make([]MemoryRecord, 0, len(hits))
	for _, hit := range hits {
		rec, ok := byID[hit.ID]
		if !ok {
			continue
		}
		if !recordMatches(rec, &q, now) {
			continue
		}
		scores[rec.ID] = hit.Score
		ordered = append(ordered, *rec)
	}

	ranked := e.ranker.rank(ordered, scores, now)
	if len(ranked) > q.TopK {
		ranked = ranked[:q.TopK]
	}

	results := make([]MemoryRecord, len(ranked))
	for i := range ranked {
		results[i] = ranked[i].clone(q.IncludeEmbeddings)
	}

	if e.cache != nil && ctx.Err() == nil {
		if err := e.cache.Set(ctx, tenantID, key, results, e.conf.CacheTTL); err != nil {
			e.logger.Warn("query cache write failed", slog.Any("error", err))
		}
	}

	e.metrics.memoriesRetrieved.Add(int64(len(results)))
	e.metrics.observeQuery(time.Since(start))
	e.logger.Debug("retrieved memories",
		slog.String("tenant", tenantID),
		slog.Int("count", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Delete removes a record everywhere it was mirrored. It reports false
// without error when the id never existed.
func (e *Engine) Delete(ctx context.Context, tenantID string, id string) (bool, error) {
	if e.index != nil {
		indexCtx, cancel := e.callCtx(ctx)
		if err := e.index.Delete(indexCtx, tenantCollection(tenantID), IndexFilter{IDs: []string{id}}); err != nil {
			e.logger.Warn("vector index delete failed",
				slog.String("memory_id", id),
				slog.Any("error", err))
		}
		cancel()
	}
	if e.textIndex != nil {
		if err := e.textIndex.Delete(ctx, tenantID, id); err != nil {
			e.logger.Warn("full-text index delete failed",
				slog.String("memory_id", id),
				slog.Any("error", err))
		}
	}

	existed, err := e.store.Delete(ctx, tenantID, id)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete memory %s for tenant %s", id, tenantID)
	}

	e.invalidateCache(ctx, tenantID)
	return existed, nil
}

// Stats summarizes the tenant's stored memories and the engine's rolling
// metrics. Read-only.
func (e *Engine) Stats(ctx context.Context, tenantID string) (*StatsSnapshot, error) {
	total, err := e.store.Count(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count memories for tenant %s", tenantID)
	}
	recent, err := e.store.CountSince(ctx, tenantID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count recent memories for tenant %s", tenantID)
	}
	byScopeKind, err := e.store.CountByScopeKind(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count memories by scope and kind for tenant %s", tenantID)
	}

	return &StatsSnapshot{
		TotalRecords:   total,
		RecordsLast24h: recent,
		ByScopeKind:    byScopeKind,
		CollectionName: tenantCollection(tenantID),
		Metrics:        e.metrics.snapshot(),
	}, nil
}

// PruneExpired removes records whose TTL has passed and returns how many
// were pruned. Index and full-text mirrors are cleaned best effort.
func (e *Engine) PruneExpired(ctx context.Context, tenantID string) (int, error) {
	now := time.Now()
	expired, err := e.store.ListExpired(ctx, tenantID, now)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to list expired memories for tenant %s", tenantID)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if e.index != nil {
		indexCtx, cancel := e.callCtx(ctx)
		if err := e.index.Delete(indexCtx, tenantCollection(tenantID), IndexFilter{IDs: expired}); err != nil {
			e.logger.Warn("vector index prune failed", slog.Any("error", err))
		}
		cancel()
	}
	if e.textIndex != nil {
		for _, id := range expired {
			if err := e.textIndex.Delete(ctx, tenantID, id); err != nil {
				e.logger.Warn("full-text index prune failed",
					slog.String("memory_id", id),
					slog.Any("error", err))
			}
		}
	}

	deleted, err := e.store.DeleteByIDs(ctx, tenantID, expired)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to delete expired memories for tenant %s", tenantID)
	}
	e.invalidateCache(ctx, tenantID)

	e.logger.Info("pruned expired memories",
		slog.String("tenant", tenantID),
		slog.Int64("count", deleted))
	return int(deleted), nil
}

// searchCandidates tries the vector index first and falls back to the
// linear scanner when the index is absent or errors. Hits come back in
// the internal similarity convention, already thresholded.
func (e *Engine) searchCandidates(ctx context.Context, tenantID string, q *MemoryQuery, queryVec []float32, threshold float64, limit int, now time.Time) ([]VectorHit, error) {
	if e.index != nil {
		indexCtx, cancel := e.callCtx(ctx)
		hits, err := e.index.Search(indexCtx, tenantCollection(tenantID), queryVec, limit, buildIndexFilter(q, now))
		cancel()
		if err == nil {
			kept := hits[:0]
			for _, hit := range hits {
				hit.Score = normalizeScore(e.conf.MetricMode, hit.Score)
				if hit.Score >= threshold {
					kept = append(kept, hit)
				}
			}
			return kept, nil
		}
		e.logger.Warn("vector search failed, falling back to linear scan",
			slog.String("tenant", tenantID),
			slog.Any("error", err))
	}
	return e.fallback.Search(ctx, tenantID, q, queryVec, threshold, limit, now)
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := e.callCtx(ctx)
	defer cancel()

	start := time.Now()
	vector, err := e.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEmbedding, "embedder call failed: %v", err)
	}
	e.metrics.observeEmbedding(time.Since(start))

	if len(vector) == 0 {
		return nil, errors.Wrapf(errors.ErrEmbedding, "embedder returned an empty vector")
	}
	want := e.embedDim.Load()
	if want == 0 {
		want = int64(e.embedder.Dimensions())
		if want == 0 {
			want = int64(len(vector))
		}
		e.embedDim.CompareAndSwap(0, want)
		want = e.embedDim.Load()
	}
	if int64(len(vector)) != want {
		return nil, errors.Wrapf(errors.ErrEmbedding, "embedding dimension %d does not match expected %d", len(vector), want)
	}
	return vector, nil
}

func (e *Engine) invalidateCache(ctx context.Context, tenantID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, tenantID); err != nil {
		e.logger.Warn("query cache invalidation failed",
			slog.String("tenant", tenantID),
			slog.Any("error", err))
	}
}

func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.conf.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.conf.CallTimeout)
}

func (e *Engine) expiry(now time.Time, ttlHours int) *time.Time {
	if ttlHours < 0 {
		return nil
	}
	if ttlHours == 0 {
		ttlHours = e.conf.DefaultTTLHours
	}
	if ttlHours <= 0 {
		return nil
	}
	t := now.Add(time.Duration(ttlHours) * time.Hour)
	return &t
}

// tenantCollection derives the stable per-tenant namespace handed to the
// vector index. Never shown to end users.
func tenantCollection(tenantID string) string {
	return "tenant_" + strings.ReplaceAll(tenantID, "-", "_") + "_memories"
}

// indexMetadataFor mirrors the record's filterable fields, scope and kind
// included, into the payload stored next to its vector.
func indexMetadataFor(record *MemoryRecord) IndexMetadata {
	extra := make(map[string]string, len(record.Metadata)+2)
	for key, value := range record.Metadata {
		extra[key] = value.indexValue()
	}
	extra = gog.Merge(extra, map[string]string{
		"scope": record.Scope,
		"kind":  record.Kind,
	})

	return IndexMetadata{
		UserID:         record.UserID,
		SessionID:      record.SessionID,
		ConversationID: record.ConversationID,
		Scope:          record.Scope,
		Kind:           record.Kind,
		Tags:           record.Tags,
		CreatedAt:      record.CreatedAt,
		ExpiresAt:      record.ExpiresAt,
		Extra:          extra,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
