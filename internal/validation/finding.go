// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validation

// StageName identifies one of the four validation stages
type StageName string

const (
	StageRule   StageName = "Rule"
	StageRAG    StageName = "RAG"
	StageCosine StageName = "Cosine"
	StageHITL   StageName = "HITL"
)

// Stages lists the stage names in execution order
var Stages = []StageName{StageRule, StageRAG, StageCosine, StageHITL}

// Status is the outcome of a single finding
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFlagged Status = "flagged"
)

// Finding is one line of a stage report
type Finding struct {
	Stage      StageName `json:"stage" yaml:"stage"`
	Status     Status    `json:"status" yaml:"status"`
	Field      string    `json:"field,omitempty" yaml:"field,omitempty"`
	Constraint string    `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	RuleID     string    `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
	Message    string    `json:"message" yaml:"message"`
	Detail     string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Flagged reports whether the finding needs attention
func (f Finding) Flagged() bool {
	return f.Status == StatusFlagged
}

// Action is the HITL decision for a record
type Action string

const (
	ActionReview Action = "review_required"
	ActionAccept Action = "auto_accept"
)

// Recommendation is the HITL stage's routing decision. AuditFraction is the
// documented share of auto-accepted records a clinician still reviews.
type Recommendation struct {
	Action        Action  `json:"action" yaml:"action"`
	AuditFraction float64 `json:"audit_fraction" yaml:"audit_fraction"`
}

// Result is the full validation report for one case
type Result struct {
	CaseID         string         `json:"case_id" yaml:"case_id"`
	Schema         string         `json:"schema" yaml:"schema"`
	Similarity     float64        `json:"similarity" yaml:"similarity"`
	Threshold      float64        `json:"threshold" yaml:"threshold"`
	Rule           []Finding      `json:"rule" yaml:"rule"`
	RAG            []Finding      `json:"rag" yaml:"rag"`
	Cosine         []Finding      `json:"cosine" yaml:"cosine"`
	HITL           []Finding      `json:"hitl" yaml:"hitl"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`
}

// Stage returns the findings for one stage
func (r *Result) Stage(name StageName) []Finding {
	switch name {
	case StageRule:
		return r.Rule
	case StageRAG:
		return r.RAG
	case StageCosine:
		return r.Cosine
	case StageHITL:
		return r.HITL
	}
	return nil
}

// All returns every finding in stage order
func (r *Result) All() []Finding {
	all := make([]Finding, 0, len(r.Rule)+len(r.RAG)+len(r.Cosine)+len(r.HITL))
	for _, name := range Stages {
		all = append(all, r.Stage(name)...)
	}
	return all
}

// Flagged reports whether any stage flagged the record
func (r *Result) Flagged() bool {
	return r.FlaggedCount() > 0
}

// FlaggedCount counts flagged findings of the automated stages. The HITL
// finding is derived from them and is not counted.
func (r *Result) FlaggedCount() int {
	n := 0
	for _, name := range Stages {
		if name == StageHITL {
			continue
		}
		for _, f := range r.Stage(name) {
			if f.Flagged() {
				n++
			}
		}
	}
	return n
}

// ReviewRequired reports whether the HITL stage routed the record to a clinician
func (r *Result) ReviewRequired() bool {
	return r.Recommendation.Action == ActionReview
}
