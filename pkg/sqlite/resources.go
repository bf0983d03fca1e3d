package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
	"github.com/jakechorley/evs-dispatch/pkg/db"
)

const resourceColumns = `id, name, certification_level, performance_rating, current_task_count, availability, shift`

func scanResource(row rowScanner) (model.Resource, error) {
	var r model.Resource
	var level, availability string
	if err := row.Scan(&r.ID, &r.Name, &level, &r.PerformanceRating, &r.CurrentTaskCount, &availability, &r.Shift); err != nil {
		return r, err
	}

	var err error
	if r.CertificationLevel, err = model.ParseCertificationLevel(level); err != nil {
		return r, fmt.Errorf("resource %s: %w", r.ID, err)
	}
	if r.Availability, err = model.ParseAvailability(availability); err != nil {
		return r, fmt.Errorf("resource %s: %w", r.ID, err)
	}
	return r, nil
}

// FetchAvailable returns the resource pool for a shift ("" for every shift), ordered by id.
// Availability status is returned as stored; the matcher enforces it.
func (d *DB) FetchAvailable(ctx context.Context, shift string) ([]model.Resource, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resource
		WHERE ? = '' OR lower(shift) = lower(?)
		ORDER BY id
	`, shift, shift)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resources: %w", err)
	}
	return resources, nil
}

// GetResource returns a resource by id
func (d *DB) GetResource(ctx context.Context, resourceID string) (*model.Resource, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resource WHERE id = ?`, resourceID)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting resource: %w", err)
	}
	return &r, nil
}

// InsertResources inserts or replaces resources in one transaction
func (d *DB) InsertResources(ctx context.Context, resources []model.Resource) error {
	if len(resources) == 0 {
		return nil
	}

	return d.withinTx(ctx, func(tx *sql.Tx) error {
		for _, r := range resources {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO resource (`+resourceColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name,
					certification_level = excluded.certification_level,
					performance_rating = excluded.performance_rating,
					current_task_count = excluded.current_task_count,
					availability = excluded.availability,
					shift = excluded.shift
			`, r.ID, r.Name, strings.ToLower(r.CertificationLevel.String()), r.PerformanceRating,
				r.CurrentTaskCount, string(r.Availability), r.Shift)
			if err != nil {
				return fmt.Errorf("inserting resource %s: %w", r.ID, err)
			}
		}
		return nil
	})
}
