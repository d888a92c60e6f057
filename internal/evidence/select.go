package evidence

import (
	"context"
	"slices"

	"github.com/dgallion1/docaudit/internal/model"
)

const (
	// DefaultLimit is the number of candidates kept per requirement.
	DefaultLimit = 5
	// DefaultScanCap bounds how many chunks are pulled into the candidate pool.
	DefaultScanCap = 2000
)

// Scope selects which chunks a requirement is matched against.
type Scope struct {
	TenantID int64
}

// ChunkSource returns chunks for a scope in a reproducible order.
type ChunkSource interface {
	ListCandidateChunks(ctx context.Context, scope Scope, limit int) ([]model.Chunk, error)
}

// Candidate is a scored chunk.
type Candidate struct {
	Chunk      model.Chunk
	Score      int
	Confidence model.Confidence
}

// Options bounds candidate selection. Zero values take the defaults.
type Options struct {
	Limit   int
	ScanCap int
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.ScanCap <= 0 {
		o.ScanCap = DefaultScanCap
	}
	return o
}

// SelectCandidates pulls the candidate pool for scope from src and ranks it
// against requirement. A requirement with no terms never touches src.
func SelectCandidates(ctx context.Context, src ChunkSource, scope Scope, requirement string, opts Options) ([]Candidate, error) {
	opts = opts.withDefaults()
	terms := Tokenize(requirement)
	if len(terms) == 0 {
		return nil, nil
	}
	pool, err := src.ListCandidateChunks(ctx, scope, opts.ScanCap)
	if err != nil {
		return nil, err
	}
	return rankTerms(terms, pool, opts.Limit), nil
}

// Rank scores pool against requirement and returns at most limit positive
// matches, highest score first. Ties keep pool order.
func Rank(requirement string, pool []model.Chunk, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := Tokenize(requirement)
	if len(terms) == 0 {
		return nil
	}
	return rankTerms(terms, pool, limit)
}

func rankTerms(terms []string, pool []model.Chunk, limit int) []Candidate {
	var scored []Candidate
	for _, ch := range pool {
		s := Score(terms, ch.Content)
		conf, ok := ConfidenceFor(s)
		if !ok {
			continue
		}
		scored = append(scored, Candidate{Chunk: ch, Score: s, Confidence: conf})
	}
	slices.SortStableFunc(scored, func(a, b Candidate) int {
		return b.Score - a.Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Snippets returns the candidate contents in rank order.
func Snippets(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Chunk.Content
	}
	return out
}
