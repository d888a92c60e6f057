package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docaudit/internal/model"
)

// CreateRegulatorySource registers an external document URL.
func (s *Store) CreateRegulatorySource(ctx context.Context, src *model.RegulatorySource) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO regulatory_sources (name, url, category, last_ingested_at) VALUES (?, ?, ?, ?)
	`, src.Name, src.URL, src.Category, nullTime(src.LastIngestedAt))
	if err != nil {
		return fmt.Errorf("inserting regulatory source: %w", err)
	}
	if src.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("regulatory source id: %w", err)
	}
	return nil
}

func scanSource(row interface{ Scan(...any) error }) (*model.RegulatorySource, error) {
	var src model.RegulatorySource
	var last sql.NullTime
	if err := row.Scan(&src.ID, &src.Name, &src.URL, &src.Category, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		src.LastIngestedAt = &t
	}
	return &src, nil
}

// GetRegulatorySource retrieves a source by ID.
func (s *Store) GetRegulatorySource(ctx context.Context, id int64) (*model.RegulatorySource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, category, last_ingested_at FROM regulatory_sources WHERE id = ?
	`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning regulatory source: %w", err)
	}
	return src, nil
}

// ListRegulatorySources returns every registered source.
func (s *Store) ListRegulatorySources(ctx context.Context) ([]model.RegulatorySource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, category, last_ingested_at FROM regulatory_sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying regulatory sources: %w", err)
	}
	defer rows.Close()

	var out []model.RegulatorySource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning regulatory source: %w", err)
		}
		out = append(out, *src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating regulatory sources: %w", err)
	}
	return out, nil
}

// MarkSourceIngested stamps the source's last ingestion time.
func (s *Store) MarkSourceIngested(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE regulatory_sources SET last_ingested_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating regulatory source: %w", err)
	}
	return nil
}
