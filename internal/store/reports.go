package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dgallion1/docaudit/internal/model"
)

// CreateReport records a rendered report.
func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	r.CreatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (run_id, title, format, output_path, content, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Title, r.Format, r.OutputPath, r.Content, r.ContentHash, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("report id: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	var r model.Report
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, title, format, output_path, content, content_hash, created_at
		FROM reports WHERE id = ?
	`, id).Scan(&r.ID, &r.RunID, &r.Title, &r.Format, &r.OutputPath, &r.Content, &r.ContentHash, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	return &r, nil
}
