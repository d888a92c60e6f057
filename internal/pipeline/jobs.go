package pipeline

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docaudit/internal/model"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusFetching   JobStatus = "fetching"
	StatusParsing    JobStatus = "parsing"
	StatusChunking   JobStatus = "chunking"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDupSkipped
}

// Job tracks the state of a single document ingestion.
type Job struct {
	mu sync.Mutex

	ID         string `json:"job_id"`
	TenantID   int64  `json:"tenant_id"`
	SourceType string `json:"source_type"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	// Set for regulatory ingests: the file is fetched from SourceURL and
	// stored under Category.
	SourceID  int64  `json:"source_id,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	Category  string `json:"category,omitempty"`

	DocumentID  int64    `json:"document_id,omitempty"`
	StoragePath string   `json:"storage_path,omitempty"`
	Progress    Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks  int      `json:"total_chunks"`
	ChunksStored int      `json:"chunks_stored"`
	Errors       []string `json:"errors"`
}

// NewUploadJob creates a queued job for a tenant's uploaded file.
func NewUploadJob(tenantID int64, filename, title string, data []byte) *Job {
	now := time.Now()
	job := &Job{
		ID:         generateULID(),
		TenantID:   tenantID,
		SourceType: model.SourceInternal,
		Status:     StatusQueued,
		Phase:      "queued",
		Filename:   SanitizeFilename(filename),
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job.fileData = data
	return job
}

// NewRegulatoryJob creates a queued job that fetches and ingests src for
// every tenant.
func NewRegulatoryJob(src *model.RegulatorySource) *Job {
	now := time.Now()
	return &Job{
		ID:         generateULID(),
		TenantID:   model.RegulatoryTenant,
		SourceType: model.SourceRegulatory,
		Status:     StatusQueued,
		Phase:      "queued",
		Filename:   SanitizeFilename(src.URL[strings.LastIndex(src.URL, "/")+1:]),
		Title:      src.Name,
		SourceID:   src.ID,
		SourceURL:  src.URL,
		Category:   src.Category,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// SetDocument records the stored (or pre-existing) document.
func (j *Job) SetDocument(id int64, storagePath string, chunksStored int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DocumentID = id
	j.StoragePath = storagePath
	j.Progress.ChunksStored = chunksStored
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash used for deduplication.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	TenantID    int64     `json:"tenant_id"`
	SourceType  string    `json:"source_type"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	DocumentID  int64     `json:"document_id,omitempty"`
	StoragePath string    `json:"storage_path,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:          j.ID,
		TenantID:    j.TenantID,
		SourceType:  j.SourceType,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		DocumentID:  j.DocumentID,
		StoragePath: j.StoragePath,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TotalChunks:  j.Progress.TotalChunks,
			ChunksStored: j.Progress.ChunksStored,
			Errors:       errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// SanitizeFilename strips path components so name is safe to join under a
// storage directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
