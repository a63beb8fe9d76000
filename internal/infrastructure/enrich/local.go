package enrich

import (
	"context"
	"time"

	"newsflow/internal/normalize"
	"newsflow/internal/ports"
	"newsflow/internal/score"
)

// Local is the pure-local Enricher used when no API key is configured and
// in tests: summaries are sentence-truncated bodies, urgency comes from
// the keyword heuristic, and everything is assumed fresh.
type Local struct {
	analyzer *score.Analyzer
}

var _ ports.Enricher = (*Local)(nil)

// NewLocal builds the fallback enricher.
func NewLocal() *Local {
	return &Local{analyzer: score.NewAnalyzer()}
}

func (l *Local) Summarize(_ context.Context, _, body string, maxChars int) (string, error) {
	return normalize.TruncateSentences(body, maxChars), nil
}

func (l *Local) CheckUrgency(_ context.Context, title, body string) (bool, error) {
	return l.analyzer.Analyze(title, body).Urgent, nil
}

func (l *Local) CheckFreshness(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	return true, nil
}
