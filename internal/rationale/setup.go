package rationale

import (
	"log/slog"
	"time"

	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/retry"
)

// New builds the capability the service runs with. The client is nil when
// generation is disabled.
func New(cfg config.Config, log *slog.Logger) (Capability, *ClaudeClient) {
	if cfg.RationaleDisabled || cfg.AnthropicAPIKey == "" {
		log.Info("rationale generation disabled, using fallback text")
		return Disabled(cfg.SnippetBudget), nil
	}
	claude := NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	return Enabled(claude, Options{
		Timeout:       cfg.RationaleTimeout,
		RatePerSec:    cfg.RationaleRatePerSec,
		Retry:         retry.Policy{Attempts: 3, Base: cfg.RetryBase, Max: 30 * time.Second},
		SnippetBudget: cfg.SnippetBudget,
		Log:           log,
	}), claude
}
