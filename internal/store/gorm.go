package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// entry is the gorm model behind the SQL store. Column names avoid the
// MySQL reserved words KEY and VALUE.
type entry struct {
	Key       string    `gorm:"column:store_key;type:varchar(255);primaryKey"`
	Value     []byte    `gorm:"column:store_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (entry) TableName() string {
	return "kiebitz_store"
}

// SQL is a Store backed by a gorm database.
type SQL struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the store table. DSNs starting with
// "mysql://" select the MySQL driver; anything else, optionally prefixed
// with "sqlite://", is a SQLite path (":memory:" for a throwaway store).
func Open(dsn string) (*SQL, error) {
	var dialector gorm.Dialector
	isSQLite := false
	switch {
	case strings.HasPrefix(dsn, "mysql://"):
		dialector = mysql.Open(strings.TrimPrefix(dsn, "mysql://"))
	default:
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
		isSQLite = true
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// Every SQLite connection to ":memory:" is a separate database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("store: tracing: %w", err)
	}

	return NewSQL(db)
}

// NewSQL wraps an existing gorm connection and migrates the store table.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQL{db: db}, nil
}

// Get returns the value stored under key or ErrNotFound.
func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var e entry
	err := s.db.WithContext(ctx).Where("store_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return e.Value, nil
}

// Set upserts value under key.
func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	e := entry{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&e).Error
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *SQL) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("store_key = ?", key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every key starting with prefix. LIKE wildcards in
// prefix match literally.
func (s *SQL) DeleteAll(ctx context.Context, prefix string) error {
	err := s.db.WithContext(ctx).
		Where("store_key LIKE ? ESCAPE '!'", escapeLike(prefix)+"%").
		Delete(&entry{}).Error
	if err != nil {
		return fmt.Errorf("store: delete prefix %s: %w", prefix, err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
