// Package sqlitevec adapts the sqlite-vec extension to the memory
// engine's VectorIndex port. Each collection gets its own vec0 virtual
// table; filterable metadata lives in a plain side table so searches can
// pre-narrow candidate ids before the vector match. Scores are cosine
// distances, so the engine should run in distance metric mode.
package sqlitevec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
	"github.com/Zeus-Eternal/AI-Karen-sub017/memory"
)

type (
	Index struct {
		db     *gorm.DB
		vecDim int

		mu     sync.Mutex
		tables map[string]bool
	}

	vectorRow struct {
		ID         string `gorm:"primaryKey"`
		Collection string `gorm:"index"`

		UserID         string
		SessionID      string
		ConversationID string
		Scope          string
		Kind           string
		Tags           datatypes.JSONSlice[string]

		CreatedAt int64 `gorm:"index"`
		// ExpiresAt is a unix timestamp; zero means no expiry.
		ExpiresAt int64
	}
)

func (vectorRow) TableName() string {
	return "vector_entries"
}

var (
	_ memory.VectorIndex = (*Index)(nil)
)

func New(dbPath string, dimension int) (*Index, error) {
	sqlite_vec.Auto()

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", dbPath)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", dbPath)
	}

	// Verify the extension actually loaded before accepting writes.
	var sqliteVersion, vecVersion string
	if err := db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion); err != nil {
		return nil, errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}

	if err := db.AutoMigrate(&vectorRow{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate vector entries table")
	}

	return &Index{
		db:     db,
		vecDim: dimension,
		tables: make(map[string]bool),
	}, nil
}

func (x *Index) Insert(ctx context.Context, collection string, id string, vector []float32, meta memory.IndexMetadata) error {
	table, err := x.ensureTable(collection)
	if err != nil {
		return err
	}

	serialized, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize embedding for %s", id)
	}

	row := vectorRow{
		ID:             id,
		Collection:     collection,
		UserID:         meta.UserID,
		SessionID:      meta.SessionID,
		ConversationID: meta.ConversationID,
		Scope:          meta.Scope,
		Kind:           meta.Kind,
		Tags:           datatypes.NewJSONSlice(meta.Tags),
		CreatedAt:      meta.CreatedAt.Unix(),
	}
	if meta.ExpiresAt != nil {
		row.ExpiresAt = meta.ExpiresAt.Unix()
	}

	return x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return errors.Wrapf(err, "failed to save vector entry %s", id)
		}
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE memory_id = ?", table), id).Error; err != nil {
			return errors.Wrapf(err, "failed to delete existing vector %s", id)
		}
		if err := tx.Exec(fmt.Sprintf("INSERT INTO %s (memory_id, embedding) VALUES (?, ?)", table), id, serialized).Error; err != nil {
			return errors.Wrapf(err, "failed to insert vector %s", id)
		}
		return nil
	})
}

func (x *Index) Search(ctx context.Context, collection string, vector []float32, topK int, filter memory.IndexFilter) ([]memory.VectorHit, error) {
	table, err := x.ensureTable(collection)
	if err != nil {
		return nil, err
	}

	serialized, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	var searchSQL string
	var args []any
	if constrained(filter) {
		ids, err := x.resolveIDs(ctx, collection, filter)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		searchSQL = fmt.Sprintf(`
			SELECT memory_id, distance
			FROM %s
			WHERE embedding MATCH ? AND memory_id IN ?
			ORDER BY distance
			LIMIT ?
		`, table)
		args = []any{serialized, ids, topK}
	} else {
		searchSQL = fmt.Sprintf(`
			SELECT memory_id, distance
			FROM %s
			WHERE embedding MATCH ?
			ORDER BY distance
			LIMIT ?
		`, table)
		args = []any{serialized, topK}
	}

	rows, err := x.db.WithContext(ctx).Raw(searchSQL, args...).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute vector search")
	}
	defer rows.Close()

	var hits []memory.VectorHit
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan search result")
		}
		hits = append(hits, memory.VectorHit{ID: id, Score: distance})
	}
	return hits, nil
}

func (x *Index) Delete(ctx context.Context, collection string, filter memory.IndexFilter) error {
	table, err := x.ensureTable(collection)
	if err != nil {
		return err
	}

	ids := filter.IDs
	if len(ids) == 0 {
		if ids, err = x.resolveIDs(ctx, collection, filter); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return nil
	}

	return x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE memory_id IN ?", table), ids).Error; err != nil {
			return errors.Wrapf(err, "failed to delete vectors")
		}
		if err := tx.Delete(&vectorRow{}, "collection = ? AND id IN ?", collection, ids).Error; err != nil {
			return errors.Wrapf(err, "failed to delete vector entries")
		}
		return nil
	})
}

func (x *Index) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// constrained reports whether the filter narrows the search at all.
func constrained(filter memory.IndexFilter) bool {
	return filter.UserID != "" ||
		filter.SessionID != "" ||
		filter.ConversationID != "" ||
		filter.Scope != "" ||
		filter.Kind != "" ||
		len(filter.IDs) > 0 ||
		filter.TimeRange != nil ||
		filter.NotExpiredAt != nil
}

// resolveIDs narrows candidate ids through the metadata side table.
func (x *Index) resolveIDs(ctx context.Context, collection string, filter memory.IndexFilter) ([]string, error) {
	q := x.db.WithContext(ctx).
		Model(&vectorRow{}).
		Where("collection = ?", collection)

	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.SessionID != "" {
		q = q.Where("session_id = ?", filter.SessionID)
	}
	if filter.ConversationID != "" {
		q = q.Where("conversation_id = ?", filter.ConversationID)
	}
	if filter.Scope != "" {
		q = q.Where("scope = ?", filter.Scope)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.TimeRange != nil {
		q = q.Where("created_at >= ? AND created_at <= ?", filter.TimeRange.Start.Unix(), filter.TimeRange.End.Unix())
	}
	if filter.NotExpiredAt != nil {
		q = q.Where("(expires_at = 0 OR expires_at > ?)", filter.NotExpiredAt.Unix())
	}

	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to resolve vector entry ids")
	}
	return ids, nil
}

func (x *Index) ensureTable(collection string) (string, error) {
	table := vecTableName(collection)

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.tables[table] {
		return table, nil
	}

	createSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
			memory_id TEXT PRIMARY KEY,
			embedding float[%d]
		);
	`, table, x.vecDim)
	if err := x.db.Exec(createSQL).Error; err != nil {
		return "", errors.Wrapf(err, "failed to create vector table %s", table)
	}

	x.tables[table] = true
	return table, nil
}

// vecTableName sanitizes the collection into a safe identifier. Collection
// names are engine-derived, never user input, but identifiers cannot be
// bound as SQL parameters so belt and braces.
func vecTableName(collection string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, collection)
	return "vec_" + sanitized
}
