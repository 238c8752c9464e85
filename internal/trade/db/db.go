// Package db is the GORM-backed store of the trading engine. A Repository
// is either bound to the connection pool or, inside WithTransaction, to one
// transaction; every multi-row operation of the workflows runs through the
// transaction-bound form so it commits or rolls back as a unit.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	connectRetries = 5
)

// openLinkIndex enforces at most one PENDING or APPROVED link per pair. The
// SQL is valid for both PostgreSQL and SQLite.
const openLinkIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_links_open_pair
ON links (supplier_id, consumer_id)
WHERE status IN ('PENDING', 'APPROVED') AND deleted_at IS NULL`

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite database file, or ":memory:".
	Path string
	// DSN, when set, replaces the PostgreSQL connection fields.
	DSN string
}

// NewRepository connects to the configured database, retrying with
// exponential backoff while it comes up, and migrates the schema.
func NewRepository(cfg *Config) (*Repository, error) {
	if strings.EqualFold(cfg.Driver, DriverSQLite) {
		return OpenSQLite(cfg.Path)
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	}

	var db *gorm.DB
	connect := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), gormConfig())
		return err
	}
	if err := backoff.Retry(connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries)); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return New(db)
}

// OpenSQLite opens a SQLite database. An in-memory database is pinned to a
// single connection so every caller sees the same data; this also
// serializes transactions.
func OpenSQLite(path string) (*Repository, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an open GORM handle and migrates the schema.
func New(db *gorm.DB) (*Repository, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Link{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Complaint{},
	); err != nil {
		return err
	}
	return db.Exec(openLinkIndex).Error
}

// WithTransaction runs fn with a repository bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// translate maps store errors onto the engine's taxonomy, naming the entity.
func translate(err error, entity string, id fmt.Stringer) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s %s", e.ErrNotFound, entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s %s already exists", e.ErrConflict, entity, id)
	}
	return err
}
