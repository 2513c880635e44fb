package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleure/fleure-db/updateinfo"
)

// ListFilter narrows ListUpdates. Zero fields match everything.
type ListFilter struct {
	Type     string
	Severity string
	Repo     string
	// IssuedSince keeps updates issued on or after this date (YYYY-MM-DD).
	IssuedSince string
}

const updateColumns = `u.id, u.advisory, u.type, u.title, u.summary, u.description, u.solution,
		u.issued, u.updated, u.release, u.severity, u.url, u.reboot_suggested`

// scanner is an interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func scanUpdate(sc scanner) (updateinfo.Update, error) {
	var (
		u                                       updateinfo.Update
		summary, description, solution          sql.NullString
		issued, updated, release, severity, url sql.NullString
	)
	err := sc.Scan(
		&u.ID, &u.Advisory, &u.Type, &u.Title, &summary, &description, &solution,
		&issued, &updated, &release, &severity, &url, &u.RebootSuggested,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return updateinfo.Update{}, ErrNotFound
		}
		return updateinfo.Update{}, fmt.Errorf("scanning update row: %w", err)
	}
	u.Summary = summary.String
	u.Description = description.String
	u.Solution = solution.String
	u.Issued = issued.String
	u.Updated = updated.String
	u.Release = release.String
	u.Severity = severity.String
	u.URL = url.String
	return u, nil
}

// GetUpdate returns the update with the given advisory id, e.g.
// RHSA-2016:2872.
func (s *Store) GetUpdate(ctx context.Context, advisory string) (updateinfo.Update, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+updateColumns+` FROM updates u WHERE u.advisory = ?`, advisory)
	u, err := scanUpdate(row)
	if err != nil {
		return updateinfo.Update{}, err
	}
	if err := s.fillUpdate(ctx, &u); err != nil {
		return updateinfo.Update{}, err
	}
	return u, nil
}

// ListUpdates returns the updates matching filter ordered by id.
func (s *Store) ListUpdates(ctx context.Context, filter ListFilter) ([]updateinfo.Update, error) {
	query := `SELECT ` + updateColumns + ` FROM updates u WHERE 1 = 1`
	var args []any

	if filter.Type != "" {
		query += ` AND u.type = ?`
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		query += ` AND u.severity = ?`
		args = append(args, filter.Severity)
	}
	if filter.Repo != "" {
		query += ` AND EXISTS (SELECT 1 FROM update_repos r WHERE r.uid = u.id AND r.repo_id = ?)`
		args = append(args, filter.Repo)
	}
	if filter.IssuedSince != "" {
		query += ` AND u.issued >= ?`
		args = append(args, filter.IssuedSince)
	}
	query += ` ORDER BY u.id`

	return s.queryUpdates(ctx, query, args...)
}

// UpdatesByPackage returns the updates shipping a package named name.
func (s *Store) UpdatesByPackage(ctx context.Context, name string) ([]updateinfo.Update, error) {
	return s.queryUpdates(ctx, `SELECT `+updateColumns+`
		FROM updates u
		WHERE EXISTS (
			SELECT 1 FROM update_packages up
			JOIN packages p ON p.id = up.pid
			WHERE up.uid = u.id AND p.name = ?)
		ORDER BY u.id`, name)
}

// Count returns the number of updates stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM updates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting updates: %w", err)
	}
	return n, nil
}

func (s *Store) queryUpdates(ctx context.Context, query string, args ...any) ([]updateinfo.Update, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var updates []updateinfo.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating update rows: %w", err)
	}
	// The single connection must be released before fetching the children.
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("closing update rows: %w", err)
	}

	for i := range updates {
		if err := s.fillUpdate(ctx, &updates[i]); err != nil {
			return nil, err
		}
	}
	return updates, nil
}

func (s *Store) fillUpdate(ctx context.Context, u *updateinfo.Update) error {
	var err error
	if u.Packages, err = s.packagesOf(ctx, u.ID); err != nil {
		return err
	}
	if u.References, err = s.referencesOf(ctx, u.ID); err != nil {
		return err
	}
	if u.Repos, err = s.reposOf(ctx, u.ID); err != nil {
		return err
	}
	return nil
}

func (s *Store) packagesOf(ctx context.Context, uid int64) ([]updateinfo.Package, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.epoch, p.version, p.release, p.arch, p.src, p.filename
		FROM packages p JOIN update_packages up ON up.pid = p.id
		WHERE up.uid = ?
		ORDER BY p.name, p.arch`, uid)
	if err != nil {
		return nil, fmt.Errorf("querying packages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pkgs []updateinfo.Package
	for rows.Next() {
		var (
			p             updateinfo.Package
			src, filename sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Epoch, &p.Version, &p.Release, &p.Arch, &src, &filename); err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}
		p.Src, p.Filename = src.String, filename.String
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating package rows: %w", err)
	}
	return pkgs, nil
}

func (s *Store) referencesOf(ctx context.Context, uid int64) ([]updateinfo.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title, r.type, r.href
		FROM refs r JOIN update_refs ur ON ur.rid = r.id
		WHERE ur.uid = ?
		ORDER BY r.type, r.id`, uid)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []updateinfo.Reference
	for rows.Next() {
		var (
			r                updateinfo.Reference
			title, typ, href sql.NullString
		)
		if err := rows.Scan(&r.ID, &title, &typ, &href); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		r.Title, r.Type, r.Href = title.String, typ.String, href.String
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reference rows: %w", err)
	}
	return refs, nil
}

func (s *Store) reposOf(ctx context.Context, uid int64) ([]updateinfo.Repo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT repo_id, repo_name FROM update_repos WHERE uid = ? ORDER BY repo_id`, uid)
	if err != nil {
		return nil, fmt.Errorf("querying repos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []updateinfo.Repo
	for rows.Next() {
		var (
			r    updateinfo.Repo
			name sql.NullString
		)
		if err := rows.Scan(&r.ID, &name); err != nil {
			return nil, fmt.Errorf("scanning repo: %w", err)
		}
		r.Name = name.String
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating repo rows: %w", err)
	}
	return repos, nil
}
