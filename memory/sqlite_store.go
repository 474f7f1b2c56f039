package memory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

type (
	// SqliteRecordStore is the durable RecordStore over SQLite.
	SqliteRecordStore struct {
		db *gorm.DB
	}

	// memoryRow is the database shape of a MemoryRecord.
	memoryRow struct {
		ID       string `gorm:"primaryKey"`
		TenantID string `gorm:"index:idx_memories_tenant_created,priority:1"`

		Content   string
		Embedding datatypes.JSONSlice[float32]
		Metadata  datatypes.JSONType[Metadata]

		Scope          string `gorm:"index:idx_memories_scope_kind,priority:1"`
		Kind           string `gorm:"index:idx_memories_scope_kind,priority:2"`
		UserID         string
		SessionID      string
		ConversationID string
		Tags           datatypes.JSONSlice[string]

		CreatedAt time.Time `gorm:"index:idx_memories_tenant_created,priority:2"`
		ExpiresAt *time.Time
	}
)

func (memoryRow) TableName() string {
	return "memories"
}

var (
	_ RecordStore = (*SqliteRecordStore)(nil)
)

func NewSqliteRecordStore(dbPath string) (*SqliteRecordStore, error) {
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", dbPath)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", dbPath)
	}

	if err := db.AutoMigrate(&memoryRow{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate memories table")
	}

	return &SqliteRecordStore{db: db}, nil
}

func (s *SqliteRecordStore) Insert(ctx context.Context, tenantID string, record *MemoryRecord) error {
	row := rowFromRecord(tenantID, record)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrapf(err, "failed to insert memory %s", record.ID)
	}
	return nil
}

func (s *SqliteRecordStore) FetchByIDs(ctx context.Context, tenantID string, ids []string) ([]MemoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []memoryRow
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch memories")
	}

	records := make([]MemoryRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}

func (s *SqliteRecordStore) Delete(ctx context.Context, tenantID string, id string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&memoryRow{})
	if tx.Error != nil {
		return false, errors.Wrapf(tx.Error, "failed to delete memory %s", id)
	}
	return tx.RowsAffected > 0, nil
}

func (s *SqliteRecordStore) ScanRecent(ctx context.Context, tenantID string, limit int) ([]MemoryRecord, error) {
	var rows []memoryRow
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to scan recent memories")
	}

	records := make([]MemoryRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}

func (s *SqliteRecordStore) Count(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&memoryRow{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, errors.Wrapf(err, "failed to count memories")
	}
	return count, nil
}

func (s *SqliteRecordStore) CountSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&memoryRow{}).
		Where("tenant_id = ? AND created_at > ?", tenantID, since).
		Count(&count).Error; err != nil {
		return 0, errors.Wrapf(err, "failed to count recent memories")
	}
	return count, nil
}

func (s *SqliteRecordStore) CountByScopeKind(ctx context.Context, tenantID string) (map[ScopeKind]int64, error) {
	var groups []struct {
		Scope string
		Kind  string
		N     int64
	}
	if err := s.db.WithContext(ctx).
		Model(&memoryRow{}).
		Select("scope, kind, COUNT(*) AS n").
		Where("tenant_id = ?", tenantID).
		Group("scope").Group("kind").
		Find(&groups).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to count memories by scope and kind")
	}

	counts := make(map[ScopeKind]int64, len(groups))
	for _, g := range groups {
		counts[ScopeKind{Scope: g.Scope, Kind: g.Kind}] = g.N
	}
	return counts, nil
}

func (s *SqliteRecordStore) ListExpired(ctx context.Context, tenantID string, now time.Time) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&memoryRow{}).
		Where("tenant_id = ? AND expires_at IS NOT NULL AND expires_at < ?", tenantID, now).
		Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list expired memories")
	}
	return ids, nil
}

func (s *SqliteRecordStore) DeleteByIDs(ctx context.Context, tenantID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Delete(&memoryRow{})
	if tx.Error != nil {
		return 0, errors.Wrapf(tx.Error, "failed to delete memories")
	}
	return tx.RowsAffected, nil
}

func (s *SqliteRecordStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowFromRecord(tenantID string, record *MemoryRecord) memoryRow {
	return memoryRow{
		ID:             record.ID,
		TenantID:       tenantID,
		Content:        record.Content,
		Embedding:      datatypes.NewJSONSlice(record.Embedding),
		Metadata:       datatypes.NewJSONType(record.Metadata),
		Scope:          record.Scope,
		Kind:           record.Kind,
		UserID:         record.UserID,
		SessionID:      record.SessionID,
		ConversationID: record.ConversationID,
		Tags:           datatypes.NewJSONSlice(record.Tags),
		CreatedAt:      record.CreatedAt,
		ExpiresAt:      record.ExpiresAt,
	}
}

func (r *memoryRow) toRecord() MemoryRecord {
	return MemoryRecord{
		ID:             r.ID,
		Content:        r.Content,
		Embedding:      r.Embedding,
		Metadata:       r.Metadata.Data(),
		Scope:          r.Scope,
		Kind:           r.Kind,
		UserID:         r.UserID,
		SessionID:      r.SessionID,
		ConversationID: r.ConversationID,
		Tags:           r.Tags,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}
