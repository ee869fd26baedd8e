// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stroke-pipeline/internal/logging"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/resilience"
	"stroke-pipeline/internal/validation"

	"github.com/slack-go/slack"
)

// NopNotifier discards every run
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, run *pipeline.Run) error { return nil }

// Config holds Slack settings
type Config struct {
	Token   string
	Channel string
	APIURL  string // overrides the Slack API base URL
}

// Enabled reports whether both token and channel are set
func (c Config) Enabled() bool {
	return c.Token != "" && c.Channel != ""
}

// SlackNotifier posts a review request for every run the HITL stage routed to a clinician
type SlackNotifier struct {
	api     *slack.Client
	channel string
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// New returns a SlackNotifier, or a NopNotifier when Slack is not configured
func New(cfg Config) pipeline.Notifier {
	if !cfg.Enabled() {
		return NopNotifier{}
	}
	return NewSlackNotifier(cfg)
}

// NewSlackNotifier creates a Slack notifier
func NewSlackNotifier(cfg Config) *SlackNotifier {
	opts := []slack.Option{}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	n := &SlackNotifier{
		api:     slack.New(cfg.Token, opts...),
		channel: cfg.Channel,
		retry:   resilience.NotifyRetryConfig(),
		logger:  logging.New("notify"),
	}
	n.retry.OnRetry = func(attempt int, err error) {
		n.logger.Debug("retrying review request", slog.Int("attempt", attempt), slog.Any("error", err))
	}
	return n
}

// Notify posts runs that need clinician review; accepted runs are skipped
func (n *SlackNotifier) Notify(ctx context.Context, run *pipeline.Run) error {
	if run == nil || !run.ReviewRequired() {
		return nil
	}

	fallback, blocks := reviewMessage(run)
	ts, err := resilience.RetryWithResult(ctx, n.retry, func(ctx context.Context) (string, error) {
		_, ts, err := n.api.PostMessageContext(ctx, n.channel,
			slack.MsgOptionText(fallback, false),
			slack.MsgOptionBlocks(blocks...),
		)
		return ts, classifySlackError(err)
	})
	if err != nil {
		return fmt.Errorf("post review request for %q: %w", run.CaseID, err)
	}
	n.logger.Info("review request posted", slog.String("case", run.CaseID), slog.String("ts", ts))
	return nil
}

func classifySlackError(err error) error {
	if err == nil {
		return nil
	}
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return resilience.NewTransientError(err.Error(), err)
	}
	return err
}

func reviewMessage(run *pipeline.Run) (string, []slack.Block) {
	fallback := fmt.Sprintf("Clinician review required: %s (%d flagged findings)",
		run.CaseID, run.Validation.FlaggedCount())

	var lines []string
	for _, f := range run.Validation.All() {
		if f.Flagged() && f.Stage != validation.StageHITL {
			lines = append(lines, fmt.Sprintf("• *%s* %s", f.Stage, f.Message))
		}
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "Clinician review required: "+run.CaseID, false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false),
			nil, nil,
		),
	}

	if run.Correction != nil && run.Correction.Changed {
		var changes []string
		for _, ch := range run.Correction.Diff {
			changes = append(changes, fmt.Sprintf("`%s`: %s → %s", ch.Field, ch.From, ch.To))
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*Corrections applied*\n"+strings.Join(changes, "\n"), false, false),
			nil, nil,
		))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("Predicted poor outcome probability: %s", pipeline.FormatProbability(run.Probability)),
			false, false),
	))
	return fallback, blocks
}
