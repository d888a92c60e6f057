package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docaudit/internal/chunker"
	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/doctree"
	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/parser"
	"github.com/dgallion1/docaudit/internal/retry"
)

// DocumentStore persists ingested documents. *store.Store implements it.
type DocumentStore interface {
	FindDocumentByHash(ctx context.Context, tenantID int64, hash string) (*model.Document, error)
	CreateDocument(ctx context.Context, doc *model.Document, chunks []model.Chunk) error
	MarkSourceIngested(ctx context.Context, id int64, at time.Time) error
	LogEvent(ctx context.Context, tenantID int64, action, details string) (*model.AuditEvent, error)
}

// WorkerConfig holds the knobs a Worker needs.
type WorkerConfig struct {
	StorageDir           string
	Chunk                chunker.Config
	PDFFallbackPdftotext bool
	Fetch                FetchConfig
}

// WorkerConfigFrom derives a WorkerConfig from service configuration.
func WorkerConfigFrom(cfg config.Config) WorkerConfig {
	return WorkerConfig{
		StorageDir:           cfg.StorageDir,
		Chunk:                chunker.Config{MaxParagraphTokens: cfg.MaxParagraphTokens},
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		Fetch: FetchConfig{
			Retry:    retry.Policy{Attempts: cfg.SourceRetries, Base: cfg.RetryBase, Max: 30 * time.Second},
			MaxBytes: cfg.MaxUploadBytes,
		},
	}
}

// Worker processes a single document job.
type Worker struct {
	docs    DocumentStore
	fetcher *Fetcher
	log     *slog.Logger
	cfg     WorkerConfig
}

func NewWorker(docs DocumentStore, log *slog.Logger, cfg WorkerConfig) *Worker {
	return &Worker{
		docs:    docs,
		fetcher: NewFetcher(cfg.Fetch),
		log:     log,
		cfg:     cfg,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "tenant_id", job.TenantID, "filename", job.Filename)

	// Phase 0: Fetch regulatory sources.
	if job.SourceURL != "" && len(job.FileData()) == 0 {
		job.SetStatus(StatusFetching, "fetching")
		data, err := w.fetcher.Fetch(ctx, job.SourceURL)
		if err != nil {
			log.Error("fetch failed", "url", job.SourceURL, "error", err)
			job.AddError(fmt.Sprintf("fetch: %s", err))
			job.SetStatus(StatusFailed, "fetching")
			return
		}
		job.SetFileData(data)
	}
	data := job.FileData()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.cfg.PDFFallbackPdftotext
	}

	tree, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	title := job.Title
	if title == "" {
		title = tree.Title
	}

	// Compute content hash from the parsed text.
	job.SetContentHash(ContentHashHex([]byte(flattenTreeText(tree))))

	// Phase 1.5: Dedup check
	existing, err := w.docs.FindDocumentByHash(ctx, job.TenantID, job.ContentHash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if existing != nil {
		log.Info("duplicate document, skipping", "existing_document_id", existing.ID)
		job.SetDocument(existing.ID, existing.StoragePath, 0)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := toModelChunks(chunker.ChunkTree(tree, w.cfg.Chunk))
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 3: Store the file, then the document and its chunks in one transaction.
	job.SetStatus(StatusStoring, "storing")
	path := w.storagePath(job)
	if err := writeFile(path, data); err != nil {
		log.Error("write file failed", "path", path, "error", err)
		job.AddError(fmt.Sprintf("store file: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	doc := &model.Document{
		TenantID:    job.TenantID,
		SourceType:  job.SourceType,
		Title:       title,
		StoragePath: path,
		ContentHash: job.ContentHash,
	}
	if err := w.docs.CreateDocument(ctx, doc, chunks); err != nil {
		log.Error("store document failed", "error", err)
		job.AddError(fmt.Sprintf("store document: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	job.SetDocument(doc.ID, path, len(chunks))
	log.Info("document stored", "document_id", doc.ID, "chunks", len(chunks))

	w.recordIngest(ctx, log, job)
	job.SetStatus(StatusCompleted, "done")
}

// recordIngest writes the audit trail; failures are logged, never fatal.
func (w *Worker) recordIngest(ctx context.Context, log *slog.Logger, job *Job) {
	action, details := "document.upload", "Uploaded "+job.Filename
	if job.SourceType == model.SourceRegulatory {
		action, details = "regulatory.ingest", "Ingested "+job.Title
		if err := w.docs.MarkSourceIngested(ctx, job.SourceID, time.Now().UTC()); err != nil {
			log.Warn("mark source ingested failed", "source_id", job.SourceID, "error", err)
		}
	}
	if _, err := w.docs.LogEvent(ctx, job.TenantID, action, details); err != nil {
		log.Warn("audit log failed", "action", action, "error", err)
	}
}

func (w *Worker) storagePath(job *Job) string {
	if job.SourceType == model.SourceRegulatory {
		category := SanitizeFilename(job.Category)
		return filepath.Join(w.cfg.StorageDir, "regulatory", category, job.Filename)
	}
	return filepath.Join(w.cfg.StorageDir, "uploads", strconv.FormatInt(job.TenantID, 10), job.Filename)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// toModelChunks maps chunker output to storable chunks; zero locators become nil.
func toModelChunks(chunks []doctree.Chunk) []model.Chunk {
	out := make([]model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		mc := model.Chunk{Content: c.Text}
		if c.Page > 0 {
			mc.Page = model.IntPtr(c.Page)
		}
		if c.Paragraph > 0 {
			mc.Paragraph = model.IntPtr(c.Paragraph)
		}
		out = append(out, mc)
	}
	return out
}

// flattenTreeText extracts all text from a DocTree into a single string for hashing.
func flattenTreeText(tree *doctree.DocTree) string {
	var sb strings.Builder
	var walk func(nodes []*doctree.DocNode)
	walk = func(nodes []*doctree.DocNode) {
		for _, n := range nodes {
			if n.Text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(n.Text)
			}
			walk(n.Children)
		}
	}
	walk(tree.Children)
	return sb.String()
}
