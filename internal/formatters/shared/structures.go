// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"time"

	"stroke-pipeline/internal/formatters"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/sources"
	"stroke-pipeline/internal/validation"
)

// Report is the top-level structure for JSON/YAML output
type Report struct {
	Runs []RunReport `json:"runs" yaml:"runs"`
}

// RunReport is one case's pipeline result
type RunReport struct {
	CaseID         string                    `json:"case_id" yaml:"case_id"`
	Title          string                    `json:"title" yaml:"title"`
	Schema         string                    `json:"schema" yaml:"schema"`
	Stages         []StageReport             `json:"stages" yaml:"stages"`
	Recommendation validation.Recommendation `json:"recommendation" yaml:"recommendation"`
	Fields         []FieldReport             `json:"fields" yaml:"fields"`
	Changed        bool                      `json:"changed" yaml:"changed"`
	Probability    float64                   `json:"predicted_poor_outcome_probability" yaml:"predicted_poor_outcome_probability"`
	StartedAt      time.Time                 `json:"started_at" yaml:"started_at"`
	Sources        *SourceReport             `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// StageReport lists one validation stage's findings
type StageReport struct {
	Name     validation.StageName `json:"name" yaml:"name"`
	Flagged  bool                 `json:"flagged" yaml:"flagged"`
	Findings []validation.Finding `json:"findings" yaml:"findings"`
}

// FieldReport is one column of the structured record before and after correction
type FieldReport struct {
	Name      string `json:"name" yaml:"name"`
	Extracted any    `json:"extracted" yaml:"extracted"`
	Corrected any    `json:"corrected" yaml:"corrected"`
	Changed   bool   `json:"changed,omitempty" yaml:"changed,omitempty"`
}

// SourceReport carries the documents in verbose output
type SourceReport struct {
	Note       string             `json:"note" yaml:"note"`
	Report     string             `json:"report" yaml:"report"`
	Image      *sources.ImageInfo `json:"image,omitempty" yaml:"image,omitempty"`
	ImageError string             `json:"image_error,omitempty" yaml:"image_error,omitempty"`
}

// ConvertRuns builds the JSON/YAML report
func ConvertRuns(runs []*pipeline.Run, options formatters.FormatterOptions) Report {
	report := Report{Runs: make([]RunReport, 0, len(runs))}
	for _, run := range runs {
		report.Runs = append(report.Runs, ConvertRun(run, options))
	}
	return report
}

// ConvertRun builds the report for one run
func ConvertRun(run *pipeline.Run, options formatters.FormatterOptions) RunReport {
	rr := RunReport{
		CaseID:      run.CaseID,
		Title:       run.Title,
		Schema:      run.Schema,
		Probability: run.Probability,
		StartedAt:   run.StartedAt,
	}

	if run.Validation != nil {
		rr.Recommendation = run.Validation.Recommendation
		for _, name := range validation.Stages {
			findings := run.Validation.Stage(name)
			stage := StageReport{Name: name, Findings: findings}
			for _, f := range findings {
				if f.Flagged() {
					stage.Flagged = true
				}
			}
			rr.Stages = append(rr.Stages, stage)
		}
	}

	corrected := run.Corrected()
	for _, col := range run.Columns {
		field := FieldReport{
			Name:      col,
			Extracted: run.Extracted[col].Interface(),
			Corrected: corrected[col].Interface(),
		}
		if run.Correction != nil {
			_, field.Changed = run.Correction.Lookup(col)
		}
		rr.Fields = append(rr.Fields, field)
	}
	if run.Correction != nil {
		rr.Changed = run.Correction.Changed
	}

	if options.Verbose {
		rr.Sources = &SourceReport{
			Note:       run.Note,
			Report:     run.Report,
			Image:      run.Image,
			ImageError: run.ImageError,
		}
	}
	return rr
}
