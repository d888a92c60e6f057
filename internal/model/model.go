package model

import "time"

// RunStatus is the lifecycle state of a compliance run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// CanTransition reports whether a run may move from s to next.
// Runs never revert, and failed is only reachable from running.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunRunning
	case RunRunning:
		return next == RunCompleted || next == RunFailed
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Status is the outcome of a single requirement within a run.
type Status string

const (
	StatusPass    Status = "pass"
	StatusPartial Status = "partial"
	StatusFail    Status = "fail"
)

// Confidence is the tier assigned to a piece of evidence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Source types for documents.
const (
	SourceInternal   = "internal"
	SourceRegulatory = "regulatory"
)

// RegulatoryTenant owns regulatory documents; their chunks are visible to every tenant.
const RegulatoryTenant int64 = 0

// Document is an ingested file.
type Document struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	SourceType  string    `json:"source_type"`
	Title       string    `json:"title"`
	StoragePath string    `json:"storage_path"`
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chunk is an addressable unit of document text. Page and Paragraph are nil
// when the source format has no such locator.
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	Page       *int      `json:"page_number"`
	Paragraph  *int      `json:"paragraph_index"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Run is one evaluation pass over a requirement list.
type Run struct {
	ID         int64     `json:"id"`
	TenantID   int64     `json:"tenant_id"`
	ReportType string    `json:"report_type"`
	Status     RunStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Result is the evaluated outcome of one requirement in a run.
type Result struct {
	ID            int64  `json:"id"`
	RunID         int64  `json:"run_id"`
	RequirementID string `json:"requirement_id"`
	Status        Status `json:"status"`
	Rationale     string `json:"rationale"`
}

// Evidence links a chunk to the result it supports.
type Evidence struct {
	ID            int64      `json:"id"`
	RunID         int64      `json:"run_id"`
	ResultID      int64      `json:"result_id"`
	RequirementID string     `json:"requirement_id"`
	DocumentID    int64      `json:"document_id"`
	ChunkID       int64      `json:"chunk_id"`
	Confidence    Confidence `json:"confidence"`
	Score         int        `json:"score"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Citation is an evidence row joined to its chunk and document.
type Citation struct {
	Evidence      Evidence
	DocumentTitle string
	Page          *int
	Paragraph     *int
}

// Report is a rendered artifact for a run.
type Report struct {
	ID          int64     `json:"id"`
	RunID       int64     `json:"run_id"`
	Title       string    `json:"title"`
	Format      string    `json:"format"`
	OutputPath  string    `json:"output_path"`
	Content     string    `json:"-"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegulatorySource is an external document fetched by URL.
type RegulatorySource struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	URL            string     `json:"url"`
	Category       string     `json:"category"`
	LastIngestedAt *time.Time `json:"last_ingested_at"`
}

// AuditEvent is an append-only log entry.
type AuditEvent struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
