// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"errors"
	"fmt"

	"stroke-pipeline/internal/record"
)

// ErrNoSeverityScore is returned when the record has no usable severity score
var ErrNoSeverityScore = errors.New("no numeric severity score")

// Predictor estimates the probability of a poor outcome from a corrected record
type Predictor interface {
	Predict(r record.Record) (float64, error)
}

// Step is one threshold of a step function: scores at or below Max map to Probability
type Step struct {
	Max         int
	Probability float64
}

// StepPredictor maps one integer field onto a fixed step function
type StepPredictor struct {
	Field   string
	Steps   []Step
	Default float64 // used above the last step
}

// NewStepPredictor returns the ASPECTS step function:
// ≤5 → 0.55, 6–7 → 0.32, ≥8 → 0.10
func NewStepPredictor() *StepPredictor {
	return &StepPredictor{
		Field: record.FieldASPECTS,
		Steps: []Step{
			{Max: 5, Probability: 0.55},
			{Max: 7, Probability: 0.32},
		},
		Default: 0.10,
	}
}

// Predict returns the probability for the record's score
func (p *StepPredictor) Predict(r record.Record) (float64, error) {
	v, ok := r[p.Field]
	if !ok {
		return 0, fmt.Errorf("%s absent: %w", p.Field, ErrNoSeverityScore)
	}
	score, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("%s = %q: %w", p.Field, v.String(), ErrNoSeverityScore)
	}
	for _, step := range p.Steps {
		if score <= step.Max {
			return step.Probability, nil
		}
	}
	return p.Default, nil
}
