// Package migrations embeds the goose migrations for every supported dialect.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// goose keeps dialect and base FS in package globals.
var mu sync.Mutex

var dialects = map[string]string{
	"postgres": "postgres",
	"sqlite":   "sqlite3",
}

// Up applies all pending migrations for dialect ("postgres" or "sqlite").
func Up(db *sql.DB, dialect string) error {
	gooseDialect, ok := dialects[dialect]
	if !ok {
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(FS)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, dialect); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
