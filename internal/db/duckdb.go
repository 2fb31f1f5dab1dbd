package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/pkg/errors"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Open opens (creating if needed) the DuckDB file under the data directory.
// An empty DataDir opens an in-memory database, which is what tests want.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.DataDir == "" {
		return sql.Open("duckdb", "")
	}

	duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(duckdbDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create duckdb directory")
	}

	name := cfg.DBName
	if name == "" {
		name = "parcelmap"
	}
	conn, err := sql.Open("duckdb", filepath.Join(duckdbDir, name+".duckdb"))
	if err != nil {
		return nil, errors.Wrap(err, "open duckdb")
	}
	return conn, nil
}
