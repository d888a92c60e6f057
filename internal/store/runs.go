package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dgallion1/docaudit/internal/model"
)

// CreateRun inserts a new run in the pending state.
func (s *Store) CreateRun(ctx context.Context, tenantID int64, reportType string) (*model.Run, error) {
	now := s.now()
	run := &model.Run{
		TenantID:   tenantID,
		ReportType: reportType,
		Status:     model.RunPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_runs (tenant_id, report_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.TenantID, run.ReportType, run.Status, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	if run.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	return run, nil
}

// TransitionRun moves a run from one status to the next. It fails with
// model.ErrInvalidTransition if the move is not allowed or the run is no
// longer in from.
func (s *Store) TransitionRun(ctx context.Context, id int64, from, to model.RunStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE compliance_runs SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, to, s.now(), id, from)
	if err != nil {
		return fmt.Errorf("updating run status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("run status rows: %w", err)
	}
	if n == 0 {
		if _, err := s.GetRun(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: run %d is not %s", model.ErrInvalidTransition, id, from)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	var r model.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, report_type, status, created_at, updated_at
		FROM compliance_runs WHERE id = ?
	`, id).Scan(&r.ID, &r.TenantID, &r.ReportType, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return &r, nil
}

// ListRuns returns a tenant's runs, newest first.
func (s *Store) ListRuns(ctx context.Context, tenantID int64) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, report_type, status, created_at, updated_at
		FROM compliance_runs WHERE tenant_id = ? ORDER BY id DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ReportType, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// SaveResult writes a result and its evidence in one transaction so readers
// never see one without the other. IDs are filled in on success.
func (s *Store) SaveResult(ctx context.Context, result *model.Result, ev []model.Evidence) error {
	now := s.now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO compliance_results (run_id, requirement_id, status, rationale)
			VALUES (?, ?, ?, ?)
		`, result.RunID, result.RequirementID, result.Status, result.Rationale)
		if err != nil {
			return fmt.Errorf("inserting result: %w", err)
		}
		if result.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("result id: %w", err)
		}

		for i := range ev {
			e := &ev[i]
			e.RunID = result.RunID
			e.ResultID = result.ID
			e.RequirementID = result.RequirementID
			e.CreatedAt = now
			res, err := tx.ExecContext(ctx, `
				INSERT INTO evidence (run_id, result_id, requirement_id, document_id, chunk_id, confidence, score, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, e.RunID, e.ResultID, e.RequirementID, e.DocumentID, e.ChunkID, e.Confidence, e.Score, e.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting evidence for chunk %d: %w", e.ChunkID, err)
			}
			if e.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("evidence id: %w", err)
			}
		}
		return nil
	})
}

// ListResults returns a run's results in storage order.
func (s *Store) ListResults(ctx context.Context, runID int64) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, requirement_id, status, rationale
		FROM compliance_results WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.ID, &r.RunID, &r.RequirementID, &r.Status, &r.Rationale); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}

// ListCitations returns a result's evidence joined to chunk and document, in
// storage order.
func (s *Store) ListCitations(ctx context.Context, resultID int64) ([]model.Citation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.run_id, e.result_id, e.requirement_id, e.document_id, e.chunk_id,
		       e.confidence, e.score, e.created_at,
		       d.title, c.page_number, c.paragraph_index
		FROM evidence e
		JOIN document_chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = e.document_id
		WHERE e.result_id = ?
		ORDER BY e.id
	`, resultID)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var out []model.Citation
	for rows.Next() {
		var c model.Citation
		var page, para sql.NullInt64
		e := &c.Evidence
		if err := rows.Scan(&e.ID, &e.RunID, &e.ResultID, &e.RequirementID, &e.DocumentID, &e.ChunkID,
			&e.Confidence, &e.Score, &e.CreatedAt, &c.DocumentTitle, &page, &para); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		c.Page = intPtr(page)
		c.Paragraph = intPtr(para)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating citations: %w", err)
	}
	return out, nil
}
