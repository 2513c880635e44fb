// Package sqlite stores normalized updates in an SQLite database, the
// updateinfo.db files of an outdir.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/updateinfo"
)

// ErrNotFound is returned when no update matches a lookup.
var ErrNotFound = errors.New("update not found")

type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating it if needed) the database at path and brings its
// schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// SaveUpdates inserts updates and their packages, references and repos.
// Rows already present are kept as they are.
func (s *Store) SaveUpdates(ctx context.Context, updates []updateinfo.Update) error {
	for _, u := range updates {
		if err := s.saveUpdate(ctx, u); err != nil {
			return fmt.Errorf("saving %s: %w", u.Advisory, err)
		}
	}
	dblog.L.Debug("%d updates saved to %s", len(updates), s.path)
	return nil
}

func (s *Store) saveUpdate(ctx context.Context, u updateinfo.Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO updates (
			id, advisory, type, title, summary, description, solution,
			issued, updated, release, severity, url, reboot_suggested
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Advisory, u.Type, u.Title, u.Summary, u.Description, u.Solution,
		u.Issued, u.Updated, u.Release, u.Severity, u.URL, u.RebootSuggested,
	); err != nil {
		return fmt.Errorf("inserting update: %w", err)
	}

	for _, p := range u.Packages {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO packages (id, name, version, release, epoch, arch, src, filename)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Version, p.Release, p.Epoch, p.Arch, p.Src, p.Filename,
		); err != nil {
			return fmt.Errorf("inserting package %s: %w", p.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO update_packages (uid, pid) VALUES (?, ?)`, u.ID, p.ID,
		); err != nil {
			return fmt.Errorf("linking package %s: %w", p.Name, err)
		}
	}

	for _, r := range u.References {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO refs (id, title, type, href) VALUES (?, ?, ?, ?)`,
			r.ID, r.Title, r.Type, r.Href,
		); err != nil {
			return fmt.Errorf("inserting reference %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO update_refs (uid, rid) VALUES (?, ?)`, u.ID, r.ID,
		); err != nil {
			return fmt.Errorf("linking reference %s: %w", r.ID, err)
		}
	}

	for _, r := range u.Repos {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO update_repos (uid, repo_id, repo_name) VALUES (?, ?, ?)`,
			u.ID, r.ID, r.Name,
		); err != nil {
			return fmt.Errorf("linking repo %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rollback rolls back tx, ignoring errors (tx may already be committed).
func rollback(tx *sql.Tx) { _ = tx.Rollback() }
