package sqlite

import (
	"context"
	"fmt"

	"github.com/fleure/fleure-db/evr"
	"github.com/fleure/fleure-db/installed"
)

// SaveInstalled replaces the recorded installed packages with pkgs.
func (s *Store) SaveInstalled(ctx context.Context, pkgs []installed.Package) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM installed`); err != nil {
		return fmt.Errorf("clearing installed packages: %w", err)
	}
	for _, p := range pkgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO installed (name, epoch, version, release, arch, vendor, sourcerpm)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Epoch, p.Version, p.Release, p.Arch, p.Vendor, p.SourceRPM,
		); err != nil {
			return fmt.Errorf("inserting installed package %s: %w", p.NEVRA, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListInstalled returns the recorded installed packages named name, or
// matching the LIKE pattern name unless strict. An empty name lists all.
func (s *Store) ListInstalled(ctx context.Context, name string, strict bool) ([]installed.Package, error) {
	query := `SELECT name, epoch, version, release, arch, vendor, sourcerpm FROM installed`
	var args []any
	switch {
	case name == "":
	case strict:
		query += ` WHERE name = ?`
		args = append(args, name)
	default:
		query += ` WHERE name LIKE ?`
		args = append(args, name)
	}
	query += ` ORDER BY name, arch`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying installed packages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pkgs []installed.Package
	for rows.Next() {
		var p installed.Package
		var n evr.NEVRA
		if err := rows.Scan(&n.Name, &n.Epoch, &n.Version, &n.Release, &n.Arch, &p.Vendor, &p.SourceRPM); err != nil {
			return nil, fmt.Errorf("scanning installed package: %w", err)
		}
		p.NEVRA = n
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating installed rows: %w", err)
	}
	return pkgs, nil
}
