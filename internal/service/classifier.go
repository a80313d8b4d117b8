package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"compliance/internal/domain"
	"compliance/internal/index"
	"compliance/internal/judge"
	"compliance/internal/precheck"
)

const defaultBatchConcurrency = 4

// Classifier is the public classification entry point. It owns the
// process-lifetime retrieval index and composes the pre-check filter, the
// judgment engine and the verdict parser; everything per-call is a fresh
// value, so concurrent calls are independent.
type Classifier struct {
	index           *index.Index
	precheck        *precheck.Filter
	engine          *judge.Engine
	precheckEnabled bool
	concurrency     int
	logger          *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithoutPreCheck disables the heuristic short-circuit; every call goes
// through retrieval and the model.
func WithoutPreCheck() Option {
	return func(c *Classifier) { c.precheckEnabled = false }
}

// WithConcurrency bounds how many classifications ClassifyMany runs at once.
func WithConcurrency(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Classifier over a built index and a judgment engine.
func New(ix *index.Index, engine *judge.Engine, opts ...Option) *Classifier {
	c := &Classifier{
		index:           ix,
		precheck:        precheck.New(),
		engine:          engine,
		precheckEnabled: true,
		concurrency:     defaultBatchConcurrency,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify produces exactly one verdict for the text. A high-confidence
// pre-check signal short-circuits before any index or model access;
// otherwise the call retrieves the nearest rules, invokes the model and
// parses its reply. Model failures propagate; parse failures degrade to a
// verdict carrying the parse-error reason.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Verdict, error) {
	if c.precheckEnabled {
		sig := c.precheck.Evaluate(text)
		if sig.Confidence == domain.ConfidenceHigh {
			c.logger.Debug("pre-check short-circuit", "reason", sig.SuggestedReason)
			return domain.Verdict{
				IsViolation:  false,
				Reason:       sig.SuggestedReason,
				Confidence:   sig.Confidence,
				PreCheckUsed: true,
			}, nil
		}
	}
	retrieved, err := c.index.Query(text, 0)
	if err != nil {
		return domain.Verdict{}, err
	}
	raw, err := c.engine.Invoke(ctx, text, retrieved)
	if err != nil {
		return domain.Verdict{}, err
	}
	verdict := judge.ParseVerdict(raw)
	c.logger.Debug("classified",
		"violation", verdict.IsViolation,
		"events", verdict.TriggeredEvents,
		"confidence", verdict.Confidence,
	)
	return verdict, nil
}

// ClassifyMany classifies each text independently with bounded parallelism
// and returns verdicts in input order. The first hard error cancels the
// remaining calls.
func (c *Classifier) ClassifyMany(ctx context.Context, texts []string) ([]domain.Verdict, error) {
	verdicts := make([]domain.Verdict, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			v, err := c.Classify(ctx, text)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}
