// internal/persist/database.go
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ScenarioBlob is the single-table schema for database-backed persistence.
type ScenarioBlob struct {
	Key       string         `gorm:"primaryKey;size:255"`
	Data      datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (*ScenarioBlob) TableName() string {
	return "scenario_blobs"
}

// Database persists scenario blobs through GORM; SQLite for local single-user
// use, Postgres for shared installs.
type Database struct {
	db *gorm.DB
}

// NewSQLite opens (and migrates) a SQLite-backed store at path.
func NewSQLite(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	return newDatabase(db)
}

// NewPostgres opens (and migrates) a Postgres-backed store.
func NewPostgres(dsn string) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}
	return newDatabase(db)
}

func newDatabase(db *gorm.DB) (*Database, error) {
	if err := db.AutoMigrate(&ScenarioBlob{}); err != nil {
		return nil, fmt.Errorf("migrating scenario schema: %w", err)
	}
	return &Database{db: db}, nil
}

func (d *Database) Load(ctx context.Context, key string) ([]byte, error) {
	var rec ScenarioBlob
	err := d.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading scenario %q: %w", key, err)
	}
	return []byte(rec.Data), nil
}

func (d *Database) Save(ctx context.Context, key string, blob []byte) error {
	rec := ScenarioBlob{Key: key, Data: datatypes.JSON(blob)}
	err := d.db.WithContext(ctx).Save(&rec).Error
	if err != nil {
		return fmt.Errorf("saving scenario %q: %w", key, err)
	}
	return nil
}

func (d *Database) Delete(ctx context.Context, key string) error {
	err := d.db.WithContext(ctx).Delete(&ScenarioBlob{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("deleting scenario %q: %w", key, err)
	}
	return nil
}

func (d *Database) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := d.db.WithContext(ctx).
		Model(&ScenarioBlob{}).
		Order("key asc").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	return keys, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
