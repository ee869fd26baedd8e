// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strconv"
	"time"

	"stroke-pipeline/internal/correction"
	"stroke-pipeline/internal/record"
	"stroke-pipeline/internal/sources"
	"stroke-pipeline/internal/validation"
)

// ProbabilityColumn is the export column appended after the record fields
const ProbabilityColumn = "Predicted_Poor_Outcome_Probability"

// Run is the complete result of evaluating one case
type Run struct {
	CaseID      string              `json:"case_id" yaml:"case_id"`
	Title       string              `json:"title" yaml:"title"`
	Schema      string              `json:"schema" yaml:"schema"`
	Note        string              `json:"note" yaml:"note"`
	Report      string              `json:"report" yaml:"report"`
	Image       *sources.ImageInfo  `json:"image,omitempty" yaml:"image,omitempty"`
	ImageError  string              `json:"image_error,omitempty" yaml:"image_error,omitempty"`
	Extracted   record.Record       `json:"extracted" yaml:"extracted"`
	Validation  *validation.Result  `json:"validation" yaml:"validation"`
	Correction  *correction.Outcome `json:"correction" yaml:"correction"`
	Probability float64             `json:"probability" yaml:"probability"`
	Columns     []string            `json:"columns" yaml:"columns"`
	StartedAt   time.Time           `json:"started_at" yaml:"started_at"`
}

// Corrected returns the final structured record
func (r *Run) Corrected() record.Record {
	if r.Correction == nil {
		return r.Extracted
	}
	return r.Correction.Record
}

// ReviewRequired reports whether the run was routed to a clinician
func (r *Run) ReviewRequired() bool {
	return r.Validation != nil && r.Validation.ReviewRequired()
}

// Header returns the export column names
func (r *Run) Header() []string {
	header := make([]string, 0, len(r.Columns)+1)
	header = append(header, r.Columns...)
	return append(header, ProbabilityColumn)
}

// Row returns the export values in Header order
func (r *Run) Row() []string {
	corrected := r.Corrected()
	row := make([]string, 0, len(r.Columns)+1)
	for _, col := range r.Columns {
		row = append(row, corrected[col].String())
	}
	return append(row, FormatProbability(r.Probability))
}

// FormatProbability renders a probability with the shortest exact decimal form
func FormatProbability(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
