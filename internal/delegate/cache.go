package delegate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"weft/internal/diag"
	"weft/internal/projection"
)

// Cache persists delegated lint results keyed by cleaned content, so undo,
// redo, and reopen hit the store instead of the cross-process linter.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the result database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open lint cache: %w", err)
	}
	c := &Cache{db: db}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lint_results (
		content_hash TEXT NOT NULL,
		format      TEXT NOT NULL,
		linter      TEXT NOT NULL,
		diagnostics TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (content_hash, format, linter)
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get looks up the stored findings for one (cleaned text, format, linter)
// combination. The second result is false on a miss.
func (c *Cache) Get(ctx context.Context, cleaned string, format projection.Format, linter string) ([]diag.Diagnostic, bool, error) {
	if c == nil || c.db == nil {
		return nil, false, nil
	}
	var blob string
	err := c.db.QueryRowContext(ctx,
		`SELECT diagnostics FROM lint_results WHERE content_hash = ? AND format = ? AND linter = ?`,
		contentHash(cleaned), string(format), linter,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var diags []diag.Diagnostic
	if err := json.Unmarshal([]byte(blob), &diags); err != nil {
		// A corrupt row is a miss; the next Put overwrites it.
		return nil, false, nil
	}
	return diags, true, nil
}

// Put stores findings for one combination, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, cleaned string, format projection.Format, linter string, diags []diag.Diagnostic) error {
	if c == nil || c.db == nil {
		return nil
	}
	blob, err := json.Marshal(diags)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
	INSERT INTO lint_results (content_hash, format, linter, diagnostics, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(content_hash, format, linter) DO UPDATE SET
		diagnostics = excluded.diagnostics,
		created_at  = excluded.created_at`,
		contentHash(cleaned), string(format), linter, string(blob), time.Now().UTC(),
	)
	return err
}

// Prune drops entries older than maxAge and reports how many went away.
func (c *Cache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM lint_results WHERE created_at < ?`,
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func contentHash(cleaned string) string {
	sum := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(sum[:])
}

// WithCache layers result caching over a linter. A nil cache hands the
// linter back unchanged. Cache faults are treated as misses; the linter
// still runs and its results still publish.
func WithCache(next Linter, cache *Cache) Linter {
	if cache == nil {
		return next
	}
	return &cachedLinter{next: next, cache: cache}
}

type cachedLinter struct {
	next  Linter
	cache *Cache
}

func (c *cachedLinter) Name() string { return c.next.Name() }

func (c *cachedLinter) Lint(ctx context.Context, req Request) ([]diag.Diagnostic, error) {
	if diags, ok, err := c.cache.Get(ctx, req.Text, req.Format, c.next.Name()); err == nil && ok {
		return diags, nil
	}
	diags, err := c.next.Lint(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Put(ctx, req.Text, req.Format, c.next.Name(), diags)
	return diags, nil
}

// Close closes the wrapped linter only; the cache is shared across linters
// and closed by its owner.
func (c *cachedLinter) Close() error { return c.next.Close() }
