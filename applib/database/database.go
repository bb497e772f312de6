package database

// Database owns the single SQLite connection backing the todos table. Every
// statement runs while holding mu, so at most one executes at a time.

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	mu sync.Mutex
	db *sqlx.DB
}

// Connect opens (or creates) the database at dataSourceName. The pool is
// pinned to one connection; callers must still call Initialize before use.
func Connect(driverName string, dataSourceName string) (*Database, error) {
	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dataSourceName, err)
	}
	db.SetMaxOpenConns(1)
	return &Database{
		db: db,
	}, nil
}

// Initialize creates the todos table if it doesn't exist yet. Safe to call on
// an already-initialized database.
func (db *Database) Initialize() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := TodosDBInit(tx); err != nil {
		return fmt.Errorf("failed to initialize todos table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.db.Close()
}

func (db *Database) GetDB() *sqlx.DB {
	return db.db
}
