package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docaudit/internal/model"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewUploadJob(t *testing.T) {
	job := NewUploadJob(7, "../../etc/ffiec.docx", "FFIEC", []byte("data"))
	if len(job.ID) != 26 {
		t.Errorf("expected 26-char ULID, got %q", job.ID)
	}
	if job.Filename != "ffiec.docx" {
		t.Errorf("expected sanitized filename %q, got %q", "ffiec.docx", job.Filename)
	}
	if job.SourceType != model.SourceInternal || job.TenantID != 7 {
		t.Errorf("unexpected source %q tenant %d", job.SourceType, job.TenantID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if string(job.FileData()) != "data" {
		t.Errorf("expected file data %q, got %q", "data", job.FileData())
	}
}

func TestNewRegulatoryJob(t *testing.T) {
	src := &model.RegulatorySource{ID: 3, Name: "FFIEC 051", URL: "https://example.com/forms/FFIEC051.pdf", Category: "call-report"}
	job := NewRegulatoryJob(src)
	if job.TenantID != model.RegulatoryTenant {
		t.Errorf("expected regulatory tenant, got %d", job.TenantID)
	}
	if job.Filename != "FFIEC051.pdf" {
		t.Errorf("expected filename %q, got %q", "FFIEC051.pdf", job.Filename)
	}
	if job.Title != "FFIEC 051" || job.SourceID != 3 || job.Category != "call-report" {
		t.Errorf("unexpected job %+v", job.Snapshot())
	}
}

func TestGenerateULID_Ordered(t *testing.T) {
	a := generateULID()
	b := generateULID()
	if a == b {
		t.Fatal("expected unique IDs")
	}
	if a[:10] > b[:10] {
		t.Errorf("expected timestamp prefix to be non-decreasing: %q then %q", a, b)
	}
	for _, r := range a {
		if !strings.ContainsRune(crockford, r) {
			t.Errorf("unexpected character %q in %q", r, a)
		}
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusChunking, "chunking"},
		{StatusStoring, "storing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
	if !job.Status.Terminal() {
		t.Error("completed should be terminal")
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse failed")
	job.AddError("store failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parse failed" {
		t.Errorf("expected first error %q, got %q", "parse failed", snap.Progress.Errors[0])
	}
}

func TestJob_SetDocument(t *testing.T) {
	job := &Job{ID: "doc-test", UpdatedAt: time.Now()}
	job.SetTotalChunks(5)
	job.SetDocument(42, "/data/a.pdf", 5)

	snap := job.Snapshot()
	if snap.DocumentID != 42 || snap.StoragePath != "/data/a.pdf" {
		t.Errorf("unexpected document %d at %q", snap.DocumentID, snap.StoragePath)
	}
	if snap.Progress.TotalChunks != 5 || snap.Progress.ChunksStored != 5 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../secret.txt", "secret.txt"},
		{"", "unnamed"},
		{"a..b.txt", "a_b.txt"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
