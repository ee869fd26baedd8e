// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"stroke-pipeline/internal/formatters"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/validation"

	"github.com/fatih/color"
)

var stageTitles = map[validation.StageName]string{
	validation.StageRule:   "STEP 1: Rule-based Validation",
	validation.StageRAG:    "STEP 2: RAG-like Semantic Verification",
	validation.StageCosine: "STEP 3: Population Similarity (Cosine)",
	validation.StageHITL:   "STEP 4: Human-in-the-Loop Review",
}

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"white":  color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable stage report with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(runs []*pipeline.Run, options formatters.FormatterOptions) (string, error) {
	if len(runs) == 0 {
		return "No cases evaluated.\n", nil
	}

	var builder strings.Builder
	for i, run := range runs {
		if i > 0 {
			builder.WriteString("\n")
		}
		f.appendRun(&builder, run, options)
	}
	return builder.String(), nil
}

// paint colors text unless colors are disabled
func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) appendRun(b *strings.Builder, run *pipeline.Run, options formatters.FormatterOptions) {
	b.WriteString(f.paint("white", options, "=== %s: %s (%s schema) ===\n", run.CaseID, run.Title, run.Schema))

	if options.Verbose {
		f.appendSources(b, run, options)
	}

	if run.Validation != nil {
		for _, stage := range validation.Stages {
			b.WriteString("\n")
			b.WriteString(f.paint("cyan", options, "%s\n", stageTitles[stage]))
			for _, finding := range run.Validation.Stage(stage) {
				f.appendFinding(b, finding, options)
			}
		}
	}

	f.appendCorrections(b, run, options)
	f.appendRecord(b, run)

	b.WriteString("\n")
	b.WriteString(f.paint("white", options, "Predicted Poor Outcome Probability: %s\n",
		pipeline.FormatProbability(run.Probability)))
	b.WriteString("Prediction based on corrected structured data.\n")
}

func (f *Formatter) appendSources(b *strings.Builder, run *pipeline.Run, options formatters.FormatterOptions) {
	b.WriteString("\n")
	b.WriteString(f.paint("cyan", options, "Neurology Note\n"))
	b.WriteString(indent(run.Note))
	b.WriteString("\n")
	b.WriteString(f.paint("cyan", options, "Radiology Report\n"))
	b.WriteString(indent(run.Report))
	b.WriteString("\n")
	b.WriteString(f.paint("cyan", options, "ASPECTS CT Image\n"))
	switch {
	case run.Image != nil:
		fmt.Fprintf(b, "  %s (%d bytes)\n", run.Image.Path, run.Image.SizeBytes)
		if run.Image.AcquiredAt != nil {
			fmt.Fprintf(b, "  acquired %s\n", run.Image.AcquiredAt.Format("2006-01-02 15:04"))
		}
	case run.ImageError != "":
		b.WriteString(f.paint("yellow", options, "  %s\n", run.ImageError))
	default:
		b.WriteString("  none\n")
	}
}

func (f *Formatter) appendFinding(b *strings.Builder, finding validation.Finding, options formatters.FormatterOptions) {
	if finding.Flagged() {
		b.WriteString(f.paint("red", options, "  ✗ %s", finding.Message))
		if finding.Constraint != "" {
			fmt.Fprintf(b, " [expected %s]", finding.Constraint)
		}
	} else {
		b.WriteString(f.paint("green", options, "  ✓ %s", finding.Message))
	}
	b.WriteString("\n")
	if finding.Detail != "" && (options.Verbose || finding.Stage == validation.StageCosine) {
		fmt.Fprintf(b, "    %s\n", finding.Detail)
	}
}

func (f *Formatter) appendCorrections(b *strings.Builder, run *pipeline.Run, options formatters.FormatterOptions) {
	if run.Correction == nil || !run.Correction.Changed {
		b.WriteString("\n")
		if run.ReviewRequired() {
			b.WriteString(f.paint("yellow", options, "Flagged for review, but no corrections are configured for this record.\n"))
		} else {
			b.WriteString(f.paint("green", options, "No issues: extracted data accepted without correction.\n"))
		}
		return
	}
	b.WriteString("\n")
	b.WriteString(f.paint("cyan", options, "Corrections Applied\n"))

	width := 0
	for _, ch := range run.Correction.Diff {
		width = max(width, len(ch.Field))
	}
	for _, ch := range run.Correction.Diff {
		b.WriteString(f.paint("yellow", options, "  %-*s %s → %s\n", width, ch.Field, ch.From, ch.To))
	}
}

func (f *Formatter) appendRecord(b *strings.Builder, run *pipeline.Run) {
	b.WriteString("\nFinal Structured Record\n")
	corrected := run.Corrected()
	width := 0
	for _, col := range run.Columns {
		width = max(width, len(col))
	}
	for _, col := range run.Columns {
		fmt.Fprintf(b, "  %-*s %s\n", width, col, corrected[col])
	}
}

func indent(text string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return "  (empty)\n"
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n") + "\n"
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
