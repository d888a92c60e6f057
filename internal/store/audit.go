package store

import (
	"context"
	"fmt"

	"github.com/dgallion1/docaudit/internal/model"
)

// LogEvent appends an audit event.
func (s *Store) LogEvent(ctx context.Context, tenantID int64, action, details string) (*model.AuditEvent, error) {
	ev := &model.AuditEvent{
		TenantID:  tenantID,
		Action:    action,
		Details:   details,
		CreatedAt: s.now(),
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (tenant_id, action, details, created_at) VALUES (?, ?, ?, ?)
	`, ev.TenantID, ev.Action, ev.Details, ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting audit event: %w", err)
	}
	if ev.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("audit event id: %w", err)
	}
	return ev, nil
}

// ListAuditEvents returns a tenant's events, newest first.
func (s *Store) ListAuditEvents(ctx context.Context, tenantID int64) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, action, details, created_at
		FROM audit_logs WHERE tenant_id = ? ORDER BY id DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}
