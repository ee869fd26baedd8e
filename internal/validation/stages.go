// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"fmt"
	"strings"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/record"
	"stroke-pipeline/internal/sources"
)

// Input is what every stage checks: the case tables, the record under
// validation and the folded source text.
type Input struct {
	Case   *cases.Case
	Record record.Record
	Text   string
}

// Checker is implemented by each automated stage
type Checker interface {
	Name() StageName
	Check(in *Input) []Finding
}

// newInput folds note and report into one searchable text
func newInput(c *cases.Case, r record.Record, note, report string) *Input {
	return &Input{
		Case:   c,
		Record: r,
		Text:   sources.Fold(note + " " + report),
	}
}

// RuleChecker enforces the schema's format and range constraints
type RuleChecker struct{}

func (RuleChecker) Name() StageName { return StageRule }

func (RuleChecker) Check(in *Input) []Finding {
	var findings []Finding
	for _, spec := range in.Case.Schema().Fields {
		if f, bad := checkField(spec, in.Record[spec.Name]); bad {
			findings = append(findings, f)
		}
	}
	if len(findings) == 0 {
		return []Finding{{
			Stage:   StageRule,
			Status:  StatusPassed,
			Message: "Passed all rule-based format/range checks.",
		}}
	}
	return findings
}

func checkField(spec record.FieldSpec, v record.Value) (Finding, bool) {
	f := Finding{
		Stage:      StageRule,
		Status:     StatusFlagged,
		Field:      spec.Name,
		Constraint: spec.Constraint(),
	}
	switch spec.Kind {
	case record.FieldTriState:
		if v.Kind == record.KindText {
			for _, allowed := range record.TriStateValues {
				if v.Text == allowed {
					return f, false
				}
			}
		}
		f.Message = fmt.Sprintf("%s has invalid value %q (expected yes/no/unknown).", spec.Name, v.String())
		return f, true

	case record.FieldInteger:
		n, ok := v.AsInt()
		switch {
		case v.IsMissing():
			f.Message = fmt.Sprintf("%s missing from source documents.", spec.Name)
			return f, true
		case !ok:
			f.Message = fmt.Sprintf("%s is not an integer (%q).", spec.Name, v.String())
			return f, true
		case n < spec.Min || n > spec.Max:
			f.Message = fmt.Sprintf("%s outside valid range (%d–%d).", spec.Name, spec.Min, spec.Max)
			f.Detail = fmt.Sprintf("value %d", n)
			return f, true
		}
	}
	return f, false
}

// RAGChecker evaluates the case's semantic cross-check table against the source text
type RAGChecker struct{}

func (RAGChecker) Name() StageName { return StageRAG }

func (RAGChecker) Check(in *Input) []Finding {
	var findings []Finding
	for _, rule := range in.Case.SemanticRules {
		if !fires(rule, in) {
			continue
		}
		f := Finding{
			Stage:   StageRAG,
			Status:  StatusFlagged,
			RuleID:  rule.ID,
			Message: rule.Message,
		}
		if len(rule.When) > 0 {
			f.Field = rule.When[0].Field
			clauses := make([]string, len(rule.When))
			for i, c := range rule.When {
				clauses[i] = c.String()
			}
			f.Detail = strings.Join(clauses, " and ")
		}
		findings = append(findings, f)
	}
	if len(findings) == 0 {
		return []Finding{{
			Stage:   StageRAG,
			Status:  StatusPassed,
			Message: "No semantic mismatch detected via RAG-like verification.",
		}}
	}
	return findings
}

func fires(rule cases.SemanticRule, in *Input) bool {
	if rule.Keyword != "" && !strings.Contains(in.Text, sources.Fold(rule.Keyword)) {
		return false
	}
	for _, c := range rule.When {
		if !c.Holds(in.Record[c.Field]) {
			return false
		}
	}
	return true
}

// CosineChecker compares the case's similarity score against the population threshold
type CosineChecker struct {
	Threshold float64
}

func (CosineChecker) Name() StageName { return StageCosine }

func (c CosineChecker) Check(in *Input) []Finding {
	sim := in.Case.Similarity
	if sim < c.Threshold {
		return []Finding{{
			Stage:      StageCosine,
			Status:     StatusFlagged,
			Constraint: fmt.Sprintf("similarity ≥ %.2f", c.Threshold),
			Message:    fmt.Sprintf("Cosine similarity = %.2f (<%.2f) → population-level outlier.", sim, c.Threshold),
			Detail:     "This step does not perform clinical reasoning; it only detects atypical variable combinations.",
		}}
	}
	return []Finding{{
		Stage:   StageCosine,
		Status:  StatusPassed,
		Message: fmt.Sprintf("Cosine similarity = %.2f → within validated population patterns.", sim),
	}}
}

// review is the HITL decision over the automated stages' findings
func review(prior []Finding, auditFraction float64) ([]Finding, Recommendation) {
	rec := Recommendation{Action: ActionAccept, AuditFraction: auditFraction}
	for _, f := range prior {
		if f.Flagged() {
			rec.Action = ActionReview
			return []Finding{{
				Stage:   StageHITL,
				Status:  StatusFlagged,
				Message: "Record requires clinician review (flagged by Rule, RAG or similarity).",
				Detail:  "This is the only step where clinical reasoning is performed.",
			}}, rec
		}
	}
	return []Finding{{
		Stage:  StageHITL,
		Status: StatusPassed,
		Message: fmt.Sprintf("No major issues detected; eligible for automated acceptance (random %.0f%% still reviewed by clinicians).",
			auditFraction*100),
	}}, rec
}
