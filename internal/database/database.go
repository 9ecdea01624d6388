package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with a Unicode-aware lower(). SQLite's built-in
// lower() folds ASCII only, which breaks case-insensitive search on Turkish text.
const sqliteDriver = "sqlite3_storeflow"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

func unicodeLower(v interface{}) interface{} {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil {
			return nil
		}
		return strings.ToLower(string(s))
	default:
		return v
	}
}

// DB bundles the two views of one connection pool: sqlx for row mapping and
// the ent driver for schema migration. Dialect selects SQL builder flavor.
type DB struct {
	*sqlx.DB
	Ent     *entsql.Driver
	Dialect string
}

// Open connects to the database and verifies the connection.
func Open(cfg Config) (*DB, error) {
	driverName := cfg.Driver
	if driverName == "sqlite3" {
		driverName = sqliteDriver
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d, err := dialectOf(cfg.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Debug {
		log.Printf("[database] Connected using %s dialect", d)
	}

	return &DB{
		DB:      sqlx.NewDb(db, cfg.Driver),
		Ent:     entsql.OpenDB(d, db),
		Dialect: d,
	}, nil
}

func dialectOf(driver string) (string, error) {
	switch driver {
	case "postgres":
		return dialect.Postgres, nil
	case "sqlite3":
		return dialect.SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Config for database connection
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}
