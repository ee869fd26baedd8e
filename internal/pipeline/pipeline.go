// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/correction"
	"stroke-pipeline/internal/logging"
	"stroke-pipeline/internal/observability"
	"stroke-pipeline/internal/prediction"
	"stroke-pipeline/internal/sources"
	"stroke-pipeline/internal/store"
	"stroke-pipeline/internal/validation"

	"golang.org/x/sync/errgroup"
)

// Notifier is told about every completed run
type Notifier interface {
	Notify(ctx context.Context, run *Run) error
}

// Sources overrides the catalog documents with files on disk
type Sources struct {
	NotePath   string
	ReportPath string
}

// Runner evaluates catalog cases end to end. It holds no per-run state.
type Runner struct {
	catalog   *cases.Catalog
	validator *validation.Validator
	predictor prediction.Predictor
	observer  *observability.StandardObserver
	logger    *slog.Logger
	store     store.Store
	notifier  Notifier
	assetsDir string
	now       func() time.Time
}

var _ observability.Observable = (*Runner)(nil)

// Option configures a Runner
type Option func(*Runner)

func WithValidator(v *validation.Validator) Option {
	return func(r *Runner) { r.validator = v }
}

func WithPredictor(p prediction.Predictor) Option {
	return func(r *Runner) { r.predictor = p }
}

func WithObserver(o *observability.StandardObserver) Option {
	return func(r *Runner) { r.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStore records an audit entry for every run
func WithStore(s store.Store) Option {
	return func(r *Runner) { r.store = s }
}

func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithAssetsDir sets the directory catalog image paths are relative to
func WithAssetsDir(dir string) Option {
	return func(r *Runner) { r.assetsDir = dir }
}

// NewRunner creates a runner over a catalog
func NewRunner(catalog *cases.Catalog, opts ...Option) *Runner {
	r := &Runner{
		catalog:   catalog,
		validator: validation.NewValidator(),
		predictor: prediction.NewStepPredictor(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.New("pipeline")
	}
	return r
}

// Catalog returns the case catalog the runner evaluates
func (r *Runner) Catalog() *cases.Catalog {
	return r.catalog
}

// Store returns the audit store, which may be nil
func (r *Runner) Store() store.Store {
	return r.store
}

// AssetsDir returns the directory catalog image paths resolve against
func (r *Runner) AssetsDir() string {
	return r.assetsDir
}

// GetComponentName returns the component name for observability
func (r *Runner) GetComponentName() string {
	return "pipeline"
}

// Run evaluates one case: lookup, document load, validation, correction,
// prediction, then audit and review notification.
func (r *Runner) Run(ctx context.Context, caseID string, src Sources) (*Run, error) {
	return r.execute(ctx, caseID, src, true)
}

// Evaluate runs the same stages as Run but writes no audit entry and sends
// no review notification.
func (r *Runner) Evaluate(ctx context.Context, caseID string, src Sources) (*Run, error) {
	return r.execute(ctx, caseID, src, false)
}

func (r *Runner) execute(ctx context.Context, caseID string, src Sources, record bool) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finish := r.observer.StartTiming(r.GetComponentName(), "run", caseID)
	run, err := r.run(ctx, caseID, src, record)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	finish(true, map[string]interface{}{
		"findings":    run.Validation.FlaggedCount(),
		"changed":     run.Correction.Changed,
		"probability": run.Probability,
	})
	return run, nil
}

func (r *Runner) run(ctx context.Context, caseID string, src Sources, record bool) (*Run, error) {
	c, err := r.catalog.Lookup(caseID)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With(slog.String("case", c.ID))

	note, report := c.Note, c.Report
	if src.NotePath != "" {
		if note, err = sources.LoadText(src.NotePath); err != nil {
			return nil, fmt.Errorf("case %q note: %w", c.ID, err)
		}
	}
	if src.ReportPath != "" {
		if report, err = sources.LoadText(src.ReportPath); err != nil {
			return nil, fmt.Errorf("case %q report: %w", c.ID, err)
		}
	}

	run := &Run{
		CaseID:    c.ID,
		Title:     c.Title,
		Schema:    c.Schema().Name,
		Note:      note,
		Report:    report,
		Extracted: c.Extracted(),
		StartedAt: r.now(),
	}

	if c.Image != "" {
		info, err := sources.Image(sources.ResolveAsset(r.assetsDir, c.Image))
		if err != nil {
			run.ImageError = err.Error()
			logger.Debug("image unavailable", slog.String("image", c.Image), slog.Any("error", err))
		} else {
			run.Image = info
		}
	}

	run.Validation, err = r.validator.Validate(c, run.Extracted, note, report)
	if err != nil {
		return nil, err
	}
	logger.Info("validated",
		slog.Int("flagged", run.Validation.FlaggedCount()),
		slog.String("action", string(run.Validation.Recommendation.Action)))
	r.observer.Metric("validation", "flagged", run.Validation.FlaggedCount())

	finish := r.observer.StartTiming("correction", "apply", c.ID)
	run.Correction, err = correction.Apply(c, run.Extracted, run.Validation)
	finish(err == nil, nil)
	if err != nil {
		return nil, err
	}
	for _, ch := range run.Correction.Diff {
		logger.Debug("corrected field", slog.String("field", ch.Field),
			slog.String("from", ch.From.String()), slog.String("to", ch.To.String()))
		r.observer.Detail("correction", fmt.Sprintf("%s %s → %s", ch.Field, ch.From, ch.To))
	}

	finish = r.observer.StartTiming("prediction", "predict", c.ID)
	run.Probability, err = r.predictor.Predict(run.Correction.Record)
	finish(err == nil, nil)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", c.ID, err)
	}
	r.observer.Metric("prediction", "probability", FormatProbability(run.Probability))
	run.Columns = c.Schema().Order(run.Correction.Record)

	if !record {
		return run, nil
	}
	if r.store != nil {
		if err := r.audit(ctx, run); err != nil {
			return nil, err
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, run); err != nil {
			logger.Warn("review notification failed", slog.Any("error", err))
		}
	}
	return run, nil
}

func (r *Runner) audit(ctx context.Context, run *Run) error {
	diff, err := json.Marshal(run.Correction.Diff)
	if err != nil {
		return fmt.Errorf("encode correction diff: %w", err)
	}
	entry := store.Entry{
		CaseID:         run.CaseID,
		FlaggedCount:   run.Validation.FlaggedCount(),
		ReviewRequired: run.ReviewRequired(),
		Changed:        run.Correction.Changed,
		Diff:           string(diff),
		Probability:    run.Probability,
		RecordedAt:     run.StartedAt,
	}
	if err := r.store.Save(ctx, entry); err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	return nil
}

// RunAll evaluates several cases with at most parallel runs in flight.
// Results keep the order of ids; the first failure cancels the rest.
func (r *Runner) RunAll(ctx context.Context, ids []string, parallel int) ([]*Run, error) {
	runs := make([]*Run, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, id := range ids {
		g.Go(func() error {
			run, err := r.Run(gCtx, id, Sources{})
			if err != nil {
				return err
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
