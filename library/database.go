package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Database is the storage gateway: it owns the SQLite handle, executes
// parameterized statements for the services and classifies store-level
// failures into the package's sentinel errors. Foreign-key enforcement
// is switched on for every connection through the DSN.
type Database struct {
	db  *sql.DB
	log *zap.Logger
}

// NewDatabase opens (or creates) the SQLite database at dbPath and
// applies the schema.
func NewDatabase(dbPath string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database ready", zap.String("path", dbPath))
	return &Database{db: db, log: logger}, nil
}

// Close closes the underlying handle.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applySchema(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            isbn TEXT UNIQUE,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT,
            year INTEGER,
            category TEXT,
            total_copies INTEGER NOT NULL,
            available_copies INTEGER NOT NULL,
            date_added TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS borrowers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            national_id TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            cohort TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
            borrower_id INTEGER NOT NULL REFERENCES borrowers(id) ON DELETE CASCADE,
            issue_date TEXT NOT NULL,
            expected_return_date TEXT,
            actual_return_date TEXT,
            status TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book_status ON loans(book_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_borrower_status ON loans(borrower_id, status);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Statement helpers
// ---------------------------------------------------------------------------

// Execute runs a single mutating statement under auto-commit.
func (d *Database) Execute(query string, args ...any) error {
	if _, err := d.db.Exec(query, args...); err != nil {
		d.log.Error("statement failed", zap.Error(err))
		return classify(err)
	}
	return nil
}

// executeRows runs a mutating statement and reports the affected
// row count, for callers that must distinguish "not found".
func (d *Database) executeRows(query string, args ...any) (int64, error) {
	res, err := d.db.Exec(query, args...)
	if err != nil {
		d.log.Error("statement failed", zap.Error(err))
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// executeInsert runs an insert and returns the assigned row id.
func (d *Database) executeInsert(query string, args ...any) (int64, error) {
	res, err := d.db.Exec(query, args...)
	if err != nil {
		d.log.Error("insert failed", zap.Error(err))
		return 0, classify(err)
	}
	return res.LastInsertId()
}

// ExecuteMany runs the same statement once per argument set inside one
// transaction; either every set commits or none do.
func (d *Database) ExecuteMany(query string, argSets [][]any) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return classify(err)
	}
	defer stmt.Close()

	for _, args := range argSets {
		if _, err := stmt.Exec(args...); err != nil {
			d.log.Error("batch statement failed", zap.Error(err))
			return classify(err)
		}
	}
	return tx.Commit()
}

// queryRow scans the first matching row into dest, returning
// ErrNotFound when nothing matches.
func (d *Database) queryRow(query string, dest []any, args ...any) error {
	err := d.db.QueryRow(query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		d.log.Error("query failed", zap.Error(err))
		return classify(err)
	}
	return nil
}

// exists reports whether the query matches at least one row.
func (d *Database) exists(query string, args ...any) (bool, error) {
	var one int
	err := d.queryRow(query, []any{&one}, args...)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// WithTx runs fn inside one transaction. The composite loan operations
// (issue+decrement, close+increment) use it so a crash mid-sequence
// cannot leave stock counts and loan status disagreeing.
func (d *Database) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// classify maps driver errors onto the package sentinels so no
// sqlite-specific type escapes the gateway. Errors matching no
// dedicated sentinel keep their message under ErrStorage.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return ErrDuplicate
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
