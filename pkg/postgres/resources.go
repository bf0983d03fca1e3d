package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/evs-dispatch/pkg/core/model"
)

// FetchAvailable returns the resource pool for a shift ("" for every shift), ordered by id.
// Availability status is returned as stored; the matcher enforces it.
func (d *DB) FetchAvailable(ctx context.Context, shift string) ([]model.Resource, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, certification_level, performance_rating, current_task_count, availability, shift
		FROM resource
		WHERE $1 = '' OR lower(shift) = lower($1)
		ORDER BY id
	`, shift)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}

	resources, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Resource, error) {
		var r model.Resource
		var level, availability string
		if err := row.Scan(&r.ID, &r.Name, &level, &r.PerformanceRating, &r.CurrentTaskCount, &availability, &r.Shift); err != nil {
			return r, err
		}
		if r.CertificationLevel, err = model.ParseCertificationLevel(level); err != nil {
			return r, fmt.Errorf("resource %s: %w", r.ID, err)
		}
		if r.Availability, err = model.ParseAvailability(availability); err != nil {
			return r, fmt.Errorf("resource %s: %w", r.ID, err)
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan resource: %w", err)
	}
	return resources, nil
}

// InsertResources inserts or replaces resources in one transaction
func (d *DB) InsertResources(ctx context.Context, resources []model.Resource) error {
	if len(resources) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range resources {
		batch.Queue(`
			INSERT INTO resource (id, name, certification_level, performance_rating, current_task_count, availability, shift)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				certification_level = EXCLUDED.certification_level,
				performance_rating = EXCLUDED.performance_rating,
				current_task_count = EXCLUDED.current_task_count,
				availability = EXCLUDED.availability,
				shift = EXCLUDED.shift
		`, r.ID, r.Name, strings.ToLower(r.CertificationLevel.String()), r.PerformanceRating, r.CurrentTaskCount,
			string(r.Availability), r.Shift)
	}

	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert resources: %w", err)
		}
		return nil
	})
}
