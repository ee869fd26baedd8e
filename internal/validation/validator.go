// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"fmt"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/observability"
	"stroke-pipeline/internal/record"
)

const (
	// DefaultThreshold is the population similarity cut-off; scores strictly below it are flagged
	DefaultThreshold = 0.82

	// AuditFraction is the share of auto-accepted records sampled for clinician audit
	AuditFraction = 0.10
)

// Validator runs the Rule, RAG, Cosine and HITL stages in order
type Validator struct {
	threshold float64
	observer  *observability.StandardObserver
}

var _ observability.Observable = (*Validator)(nil)

// Option configures a Validator
type Option func(*Validator)

// WithThreshold overrides the similarity threshold
func WithThreshold(threshold float64) Option {
	return func(v *Validator) {
		v.threshold = threshold
	}
}

// WithObserver times each stage
func WithObserver(observer *observability.StandardObserver) Option {
	return func(v *Validator) {
		v.observer = observer
	}
}

// NewValidator creates a validator with the default threshold
func NewValidator(opts ...Option) *Validator {
	v := &Validator{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Threshold returns the configured similarity threshold
func (v *Validator) Threshold() float64 {
	return v.threshold
}

// GetComponentName returns the component name for observability
func (v *Validator) GetComponentName() string {
	return "validation"
}

// Validate checks an extraction record against the case's schema, semantic
// rules and similarity score. It fails before running any stage when the
// case is nil, the record lacks schema fields, or a rule references a field
// the schema does not declare.
func (v *Validator) Validate(c *cases.Case, extracted record.Record, note, report string) (*Result, error) {
	if c == nil {
		return nil, &record.UnknownCaseError{}
	}
	schema := c.Schema()
	if schema == nil {
		return nil, fmt.Errorf("case %q has no resolved schema", c.ID)
	}
	if err := schema.Require(c.ID, extracted); err != nil {
		return nil, err
	}
	for _, rule := range c.SemanticRules {
		for _, clause := range rule.When {
			if !schema.Has(clause.Field) {
				return nil, &record.InapplicableError{
					CaseID: c.ID,
					RuleID: rule.ID,
					Field:  clause.Field,
					Schema: schema.Name,
				}
			}
		}
	}

	in := newInput(c, extracted, note, report)
	result := &Result{
		CaseID:     c.ID,
		Schema:     schema.Name,
		Similarity: c.Similarity,
		Threshold:  v.threshold,
	}

	checkers := []Checker{RuleChecker{}, RAGChecker{}, CosineChecker{Threshold: v.threshold}}
	for _, checker := range checkers {
		finish := v.observer.StartTiming(v.GetComponentName(), string(checker.Name()), c.ID)
		findings := checker.Check(in)
		finish(true, map[string]interface{}{"findings": countFlagged(findings)})

		switch checker.Name() {
		case StageRule:
			result.Rule = findings
		case StageRAG:
			result.RAG = findings
		case StageCosine:
			result.Cosine = findings
		}
	}

	finish := v.observer.StartTiming(v.GetComponentName(), string(StageHITL), c.ID)
	prior := make([]Finding, 0, len(result.Rule)+len(result.RAG)+len(result.Cosine))
	prior = append(append(append(prior, result.Rule...), result.RAG...), result.Cosine...)
	result.HITL, result.Recommendation = review(prior, AuditFraction)
	finish(true, map[string]interface{}{"findings": countFlagged(result.HITL)})

	return result, nil
}

func countFlagged(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Flagged() {
			n++
		}
	}
	return n
}
