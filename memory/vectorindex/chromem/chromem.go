// Package chromem adapts chromem-go, a pure Go embedded vector database,
// to the memory engine's VectorIndex port. Scores are cosine similarity,
// so the engine should run in similarity metric mode.
package chromem

import (
	"context"
	"strconv"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
	"github.com/Zeus-Eternal/AI-Karen-sub017/memory"
)

type Index struct {
	db          *chromemgo.DB
	mu          sync.RWMutex
	collections map[string]*chromemgo.Collection
}

var (
	_ memory.VectorIndex = (*Index)(nil)
)

func New() *Index {
	return &Index{
		db:          chromemgo.NewDB(),
		collections: make(map[string]*chromemgo.Collection),
	}
}

func (x *Index) Insert(ctx context.Context, collection string, id string, vector []float32, meta memory.IndexMetadata) error {
	col, err := x.getOrCreateCollection(collection)
	if err != nil {
		return err
	}

	doc := chromemgo.Document{
		ID:        id,
		Embedding: vector,
		Metadata:  flattenMetadata(meta),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return errors.Wrapf(err, "failed to add document %s to collection %s", id, collection)
	}
	return nil
}

func (x *Index) Search(ctx context.Context, collection string, vector []float32, topK int, filter memory.IndexFilter) ([]memory.VectorHit, error) {
	col, err := x.getOrCreateCollection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	if count := col.Count(); count < topK {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, whereClause(filter), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query collection %s", collection)
	}

	hits := make([]memory.VectorHit, 0, len(results))
	for _, result := range results {
		hits = append(hits, memory.VectorHit{
			ID:    result.ID,
			Score: float64(result.Similarity),
		})
	}
	return hits, nil
}

func (x *Index) Delete(ctx context.Context, collection string, filter memory.IndexFilter) error {
	x.mu.RLock()
	col, exists := x.collections[collection]
	x.mu.RUnlock()
	if !exists {
		return nil
	}

	if len(filter.IDs) > 0 {
		if err := col.Delete(ctx, nil, nil, filter.IDs...); err != nil {
			return errors.Wrapf(err, "failed to delete documents from collection %s", collection)
		}
		return nil
	}
	if err := col.Delete(ctx, whereClause(filter), nil); err != nil {
		return errors.Wrapf(err, "failed to delete documents from collection %s", collection)
	}
	return nil
}

func (x *Index) getOrCreateCollection(name string) (*chromemgo.Collection, error) {
	x.mu.RLock()
	col, exists := x.collections[name]
	x.mu.RUnlock()
	if exists {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, exists := x.collections[name]; exists {
		return col, nil
	}

	// Embeddings always arrive precomputed, so no embedding func and the
	// default cosine distance.
	col, err := x.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create collection %s", name)
	}
	x.collections[name] = col
	return col, nil
}

// whereClause maps the equality parts of the filter onto chromem's where
// map. Time range and expiry cannot be pushed down; the engine re-applies
// them after the record fetch.
func whereClause(filter memory.IndexFilter) map[string]string {
	where := make(map[string]string)
	if filter.UserID != "" {
		where["user_id"] = filter.UserID
	}
	if filter.SessionID != "" {
		where["session_id"] = filter.SessionID
	}
	if filter.ConversationID != "" {
		where["conversation_id"] = filter.ConversationID
	}
	if filter.Scope != "" {
		where["scope"] = filter.Scope
	}
	if filter.Kind != "" {
		where["kind"] = filter.Kind
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

func flattenMetadata(meta memory.IndexMetadata) map[string]string {
	flat := make(map[string]string, len(meta.Extra)+6)
	for key, value := range meta.Extra {
		flat[key] = value
	}
	flat["user_id"] = meta.UserID
	flat["session_id"] = meta.SessionID
	flat["conversation_id"] = meta.ConversationID
	flat["scope"] = meta.Scope
	flat["kind"] = meta.Kind
	flat["created_at"] = strconv.FormatInt(meta.CreatedAt.Unix(), 10)
	if meta.ExpiresAt != nil {
		flat["expires_at"] = strconv.FormatInt(meta.ExpiresAt.Unix(), 10)
	}
	return flat
}
