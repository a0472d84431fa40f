package tuner

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Cache memoizes (param set -> trial result) so a grid or random search
// can resume after interruption without re-running already-completed
// trials.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if necessary) a sqlite-backed trial cache at
// path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tuner: cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("tuner: open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("tuner: ping cache: %w", err)
	}
	const schema = `
	CREATE TABLE IF NOT EXISTS trials (
		param_hash TEXT PRIMARY KEY,
		params_json TEXT NOT NULL,
		score REAL NOT NULL,
		runtime_ms INTEGER NOT NULL,
		err TEXT NOT NULL DEFAULT ''
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tuner: migrate cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// paramHash produces a stable content hash of a parameter set, used as
// the cache key (JSON-encoded sorted-key map, sha256).
func paramHash(params map[string]any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns a cached trial outcome for params, if one exists.
func (c *Cache) Get(params map[string]any) (score float64, runtimeMS int64, errMsg string, found bool, err error) {
	hash, err := paramHash(params)
	if err != nil {
		return 0, 0, "", false, err
	}
	row := c.db.QueryRow(`SELECT score, runtime_ms, err FROM trials WHERE param_hash = ?`, hash)
	if scanErr := row.Scan(&score, &runtimeMS, &errMsg); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, 0, "", false, nil
		}
		return 0, 0, "", false, scanErr
	}
	return score, runtimeMS, errMsg, true, nil
}

// Put records a completed trial's outcome, keyed by its parameter set.
func (c *Cache) Put(params map[string]any, score float64, runtimeMS int64, errMsg string) error {
	hash, err := paramHash(params)
	if err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT INTO trials (param_hash, params_json, score, runtime_ms, err) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(param_hash) DO UPDATE SET score=excluded.score, runtime_ms=excluded.runtime_ms, err=excluded.err`,
		hash, string(paramsJSON), score, runtimeMS, errMsg,
	)
	return err
}
