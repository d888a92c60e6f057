package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dgallion1/docaudit/internal/evidence"
	"github.com/dgallion1/docaudit/internal/model"
)

var _ evidence.ChunkSource = (*Store)(nil)

// CreateDocument stores doc and its chunks atomically, filling in their IDs.
func (s *Store) CreateDocument(ctx context.Context, doc *model.Document, chunks []model.Chunk) error {
	if doc.SourceType == "" {
		doc.SourceType = model.SourceInternal
	}
	doc.CreatedAt = s.now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (tenant_id, source_type, title, storage_path, content_hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, doc.TenantID, doc.SourceType, doc.Title, doc.StoragePath, doc.ContentHash, doc.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		if doc.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("document id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_chunks (document_id, page_number, paragraph_index, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing chunk insert: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			c.DocumentID = doc.ID
			c.CreatedAt = doc.CreatedAt
			res, err := stmt.ExecContext(ctx, c.DocumentID, nullInt(c.Page), nullInt(c.Paragraph), c.Content, c.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting chunk %d: %w", i, err)
			}
			if c.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("chunk id: %w", err)
			}
		}
		return nil
	})
}

const documentColumns = `id, tenant_id, source_type, title, storage_path, content_hash, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(&d.ID, &d.TenantID, &d.SourceType, &d.Title, &d.StoragePath, &d.ContentHash, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return d, nil
}

// FindDocumentByHash returns the tenant's document with the given content
// hash, or nil when there is none.
func (s *Store) FindDocumentByHash(ctx context.Context, tenantID int64, hash string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE tenant_id = ? AND content_hash = ? ORDER BY id LIMIT 1
	`, tenantID, hash)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return d, nil
}

// ListDocuments returns a tenant's documents in creation order.
func (s *Store) ListDocuments(ctx context.Context, tenantID int64) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

const chunkColumns = `c.id, c.document_id, c.page_number, c.paragraph_index, c.content, c.created_at`

func scanChunks(rows *sql.Rows) ([]model.Chunk, error) {
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var page, para sql.NullInt64
		if err := rows.Scan(&c.ID, &c.DocumentID, &page, &para, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Page = intPtr(page)
		c.Paragraph = intPtr(para)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ListChunks returns a document's chunks in insertion order.
func (s *Store) ListChunks(ctx context.Context, documentID int64) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM document_chunks c WHERE c.document_id = ? ORDER BY c.id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return scanChunks(rows)
}

// ListCandidateChunks returns up to limit chunks visible to the scope's
// tenant (its own documents plus regulatory ones), oldest first.
func (s *Store) ListCandidateChunks(ctx context.Context, scope evidence.Scope, limit int) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.tenant_id IN (?, ?)
		ORDER BY c.id
		LIMIT ?
	`, scope.TenantID, model.RegulatoryTenant, limit)
	if err != nil {
		return nil, fmt.Errorf("querying candidate chunks: %w", err)
	}
	return scanChunks(rows)
}
