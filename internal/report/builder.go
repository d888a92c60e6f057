package report

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docaudit/internal/model"
)

// Store is the persistence a Builder needs. *store.Store implements it.
type Store interface {
	Source
	CreateReport(ctx context.Context, r *model.Report) error
	LogEvent(ctx context.Context, tenantID int64, action, details string) (*model.AuditEvent, error)
}

// Builder renders and records reports under storageDir/reports.
type Builder struct {
	store Store
	dir   string
	log   *slog.Logger
}

func NewBuilder(store Store, storageDir string, log *slog.Logger) *Builder {
	return &Builder{store: store, dir: filepath.Join(storageDir, "reports"), log: log}
}

// Build renders a completed run's report in the given format and records it.
//
// Runs that have not completed return model.ErrRunIncomplete. Write or
// persist failures return a *model.RenderError; stored results are never
// touched, so Build can be retried.
func (b *Builder) Build(ctx context.Context, runID int64, title, formatName string) (*model.Report, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.InputErrorf("title is required")
	}
	name := strings.ToLower(strings.TrimSpace(formatName))
	if name == "" {
		name = DefaultFormat
	}
	f, ok := formats[name]
	if !ok {
		return nil, model.InputErrorf("unsupported report format %q (want one of %s)", formatName, strings.Join(Formats(), ", "))
	}

	run, err := b.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", runID, err)
	}
	if run.Status != model.RunCompleted {
		return nil, fmt.Errorf("run %d is %s: %w", runID, run.Status, model.ErrRunIncomplete)
	}

	content, err := BuildContent(ctx, b.store, runID)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])
	path := filepath.Join(b.dir, OutputName(runID, title, hash, f.ext))
	var out bytes.Buffer
	if err := f.render(&out, title, content); err != nil {
		return nil, &model.RenderError{Path: path, Err: err}
	}
	if err := writeFile(path, out.Bytes()); err != nil {
		return nil, &model.RenderError{Path: path, Err: err}
	}

	report := &model.Report{
		RunID:       runID,
		Title:       title,
		Format:      name,
		OutputPath:  path,
		Content:     content,
		ContentHash: hash,
	}
	if err := b.store.CreateReport(ctx, report); err != nil {
		return nil, &model.RenderError{Path: path, Err: err}
	}

	details := fmt.Sprintf("Report %d for run %d", report.ID, runID)
	if _, err := b.store.LogEvent(ctx, run.TenantID, "report.generate", details); err != nil {
		b.log.Warn("audit log failed", "error", err)
	}
	b.log.Info("report generated", "report_id", report.ID, "run_id", runID, "format", name, "path", path)
	return report, nil
}

// OutputName names a report file "<run>_<title>_<hash prefix>.<ext>".
// Builds of the same run and title render identical bytes and share a
// file; any other pair gets its own.
func OutputName(runID int64, title, contentHash, ext string) string {
	if len(contentHash) > 12 {
		contentHash = contentHash[:12]
	}
	return fmt.Sprintf("%d_%s_%s.%s", runID, Filename(title), contentHash, ext)
}

// Filename turns a report title into a file stem: spaces become
// underscores and path separators are removed.
func Filename(title string) string {
	name := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(title)
	if name == "." || name == ".." || name == "" {
		return "report"
	}
	return name
}

// writeFile replaces path atomically so a failed write never leaves a
// truncated report behind.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
