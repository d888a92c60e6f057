// Package compliance evaluates requirement lists against a tenant's chunks
// and records one result per requirement.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/evidence"
	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/rationale"
	"github.com/dgallion1/docaudit/internal/retry"
)

// Store is the persistence the engine needs. *store.Store implements it.
type Store interface {
	evidence.ChunkSource
	CreateRun(ctx context.Context, tenantID int64, reportType string) (*model.Run, error)
	TransitionRun(ctx context.Context, id int64, from, to model.RunStatus) error
	SaveResult(ctx context.Context, result *model.Result, ev []model.Evidence) error
	LogEvent(ctx context.Context, tenantID int64, action, details string) (*model.AuditEvent, error)
}

// Options bounds a run.
type Options struct {
	Workers     int              // Requirements evaluated concurrently.
	Candidates  evidence.Options // Top-K and scan cap.
	SourceRetry retry.Policy     // Chunk retrieval retries.
}

// OptionsFrom derives engine options from service configuration.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Workers:     cfg.RunWorkers,
		Candidates:  evidence.Options{Limit: cfg.CandidateLimit, ScanCap: cfg.CandidateScanCap},
		SourceRetry: retry.Policy{Attempts: cfg.SourceRetries, Base: cfg.RetryBase, Max: 30 * time.Second},
	}
}

// RunRequest asks for one evaluation pass.
type RunRequest struct {
	TenantID     int64    `json:"tenant_id"`
	ReportType   string   `json:"report_type"`
	Requirements []string `json:"requirements"`
}

// Validate rejects requests that must not create a run.
func (r RunRequest) Validate() error {
	if r.TenantID < 0 {
		return model.InputErrorf("tenant_id must not be negative")
	}
	if strings.TrimSpace(r.ReportType) == "" {
		return model.InputErrorf("report_type is required")
	}
	if len(r.Requirements) == 0 {
		return model.InputErrorf("requirements must not be empty")
	}
	for i, req := range r.Requirements {
		if strings.TrimSpace(req) == "" {
			return model.InputErrorf("requirement %d is blank", i+1)
		}
	}
	return nil
}

// RequirementResult is a stored result with the evidence recorded for it.
type RequirementResult struct {
	Result   model.Result     `json:"result"`
	Evidence []model.Evidence `json:"evidence"`
}

// RunOutcome is the final state of a run and its results in request order.
type RunOutcome struct {
	Run     model.Run           `json:"run"`
	Results []RequirementResult `json:"results"`
}

// Engine drives compliance runs.
type Engine struct {
	store     Store
	rationale rationale.Capability
	opts      Options
	log       *slog.Logger
}

func NewEngine(store Store, capability rationale.Capability, opts Options, log *slog.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if capability == nil {
		capability = rationale.Disabled(rationale.DefaultSnippetBudget)
	}
	return &Engine{store: store, rationale: capability, opts: opts, log: log}
}

// StartRun creates a run, evaluates every requirement and completes it.
//
// Invalid requests return model.ErrInvalidInput and create nothing. Failing
// chunk retrieval only fails that requirement. If a result cannot be
// persisted the run is marked failed and the error returned.
func (e *Engine) StartRun(ctx context.Context, req RunRequest) (*RunOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun(ctx, req.TenantID, req.ReportType)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	log := e.log.With("run_id", run.ID, "tenant_id", req.TenantID, "report_type", req.ReportType)

	if err := e.store.TransitionRun(ctx, run.ID, model.RunPending, model.RunRunning); err != nil {
		return nil, fmt.Errorf("start run %d: %w", run.ID, err)
	}
	run.Status = model.RunRunning
	log.Info("run started", "requirements", len(req.Requirements))
	start := time.Now()

	results := make([]RequirementResult, len(req.Requirements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, requirement := range req.Requirements {
		g.Go(func() error {
			rr, err := e.evaluate(gctx, log, run, requirement)
			if err != nil {
				return err
			}
			results[i] = *rr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.fail(ctx, log, run, err)
		return nil, fmt.Errorf("run %d: %w", run.ID, err)
	}

	// Result ids follow request order, so persist after the join.
	for i := range results {
		rr := &results[i]
		if err := e.store.SaveResult(ctx, &rr.Result, rr.Evidence); err != nil {
			err = fmt.Errorf("save result for %q: %w", rr.Result.RequirementID, err)
			e.fail(ctx, log, run, err)
			return nil, fmt.Errorf("run %d: %w", run.ID, err)
		}
	}

	if err := e.store.TransitionRun(ctx, run.ID, model.RunRunning, model.RunCompleted); err != nil {
		e.fail(ctx, log, run, err)
		return nil, fmt.Errorf("complete run %d: %w", run.ID, err)
	}
	run.Status = model.RunCompleted

	details := fmt.Sprintf("Run %d for %s", run.ID, run.ReportType)
	if _, err := e.store.LogEvent(ctx, run.TenantID, "compliance.run", details); err != nil {
		log.Warn("audit log failed", "error", err)
	}
	log.Info("run completed", "duration_ms", time.Since(start).Milliseconds())

	return &RunOutcome{Run: *run, Results: results}, nil
}

// evaluate selects, classifies and explains one requirement. The result is
// not stored yet.
func (e *Engine) evaluate(ctx context.Context, log *slog.Logger, run *model.Run, requirement string) (*RequirementResult, error) {
	scope := evidence.Scope{TenantID: run.TenantID}

	var candidates []evidence.Candidate
	err := retry.Do(ctx, e.opts.SourceRetry, retryableSourceError, func(ctx context.Context) error {
		c, err := evidence.SelectCandidates(ctx, e.store, scope, requirement, e.opts.Candidates)
		candidates = c
		return err
	})

	result := &model.Result{RunID: run.ID, RequirementID: requirement}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		srcErr := &model.EvidenceSourceError{Requirement: requirement, Err: err}
		log.Warn("evidence retrieval failed", "error", srcErr)
		result.Status = model.StatusFail
		result.Rationale = rationale.RetrievalFailed(requirement, err)
		candidates = nil
	} else {
		result.Status = evidence.StatusFor(candidates)
		result.Rationale = e.rationale.Rationale(ctx, requirement, evidence.Snippets(candidates))
	}

	ev := make([]model.Evidence, len(candidates))
	for i, c := range candidates {
		ev[i] = model.Evidence{
			DocumentID: c.Chunk.DocumentID,
			ChunkID:    c.Chunk.ID,
			Confidence: c.Confidence,
			Score:      c.Score,
		}
	}
	log.Debug("requirement evaluated", "requirement", requirement, "status", result.Status, "evidence", len(ev))
	return &RequirementResult{Result: *result, Evidence: ev}, nil
}

// fail marks a running run failed. It uses a context detached from the
// caller's so a cancelled request still leaves a terminal status.
func (e *Engine) fail(ctx context.Context, log *slog.Logger, run *model.Run, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	log.Error("run failed", "error", cause)
	if err := e.store.TransitionRun(ctx, run.ID, model.RunRunning, model.RunFailed); err != nil {
		log.Error("mark run failed", "error", err)
		return
	}
	run.Status = model.RunFailed
	details := fmt.Sprintf("Run %d for %s failed: %v", run.ID, run.ReportType, cause)
	if _, err := e.store.LogEvent(ctx, run.TenantID, "compliance.run.failed", details); err != nil {
		log.Warn("audit log failed", "error", err)
	}
}

func retryableSourceError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
