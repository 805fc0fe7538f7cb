package kvstore

import (
	"context"
	"errors"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// entry is the single-table key-value schema backing the SQLite store.
type entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:512;not null"`
	Value     string `gorm:"column:entry_value;type:text;not null"`
	UpdatedAt int64  `gorm:"column:updated_at_s;not null;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (entry) TableName() string {
	return "kv_entries"
}

// SQLite is a Store persisted in a single SQLite table. It exists for
// deployments where the host application already manages a SQLite file
// and an extra database directory is unwanted.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite establishes a SQLite connection and migrates the key-value table.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("sqlite key-value store initialized", zap.String("path", path))
	}

	return &SQLite{db: db}, nil
}

// NewSQLite wraps an already-open gorm handle. The key-value table must
// have been migrated by the caller.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return &SQLite{db: db}, nil
}

// Migrate creates the key-value table on the provided handle. Exposed for
// callers that open gorm themselves.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&entry{})
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	var found entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return found.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at_s"}),
	}).Create(&entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&entry{}).Error
	if err != nil {
		return fmt.Errorf("sqlite remove: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
