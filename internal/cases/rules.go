// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cases

import (
	"fmt"

	"stroke-pipeline/internal/record"
)

// Op is a comparison operator used in semantic rule clauses
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpGt Op = "gt"
	OpGe Op = "ge"
	OpLt Op = "lt"
	OpLe Op = "le"
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return true
	}
	return false
}

func (o Op) numeric() bool {
	return o == OpGt || o == OpGe || o == OpLt || o == OpLe
}

// Clause compares one record field against a literal
type Clause struct {
	Field string       `yaml:"field" json:"field"`
	Op    Op           `yaml:"op" json:"op"`
	Value record.Value `yaml:"value" json:"value"`
}

// Holds evaluates the clause against a field value. Ordering operators only
// hold when both sides are integers; a "missing" score never satisfies them.
func (c Clause) Holds(v record.Value) bool {
	switch c.Op {
	case OpEq:
		return v.Equal(c.Value)
	case OpNe:
		return !v.Equal(c.Value)
	}

	got, ok := v.AsInt()
	if !ok {
		return false
	}
	want, ok := c.Value.AsInt()
	if !ok {
		return false
	}
	switch c.Op {
	case OpGt:
		return got > want
	case OpGe:
		return got >= want
	case OpLt:
		return got < want
	case OpLe:
		return got <= want
	}
	return false
}

func (c Clause) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value)
}

// SemanticRule is one entry of a case's cross-check table. It fires when the
// keyword (if set) occurs in the folded source text and every clause holds.
type SemanticRule struct {
	ID      string   `yaml:"id" json:"id"`
	Keyword string   `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	When    []Clause `yaml:"when" json:"when"`
	Message string   `yaml:"message" json:"message"`
}

func (r SemanticRule) check() error {
	if r.ID == "" {
		return fmt.Errorf("semantic rule without id")
	}
	if r.Message == "" {
		return fmt.Errorf("semantic rule %q has no message", r.ID)
	}
	if r.Keyword == "" && len(r.When) == 0 {
		return fmt.Errorf("semantic rule %q has neither keyword nor clauses", r.ID)
	}
	for _, c := range r.When {
		if c.Field == "" {
			return fmt.Errorf("semantic rule %q: clause without field", r.ID)
		}
		if !c.Op.valid() {
			return fmt.Errorf("semantic rule %q: unknown operator %q", r.ID, c.Op)
		}
		if c.Op.numeric() {
			if _, ok := c.Value.AsInt(); !ok {
				return fmt.Errorf("semantic rule %q: operator %s needs an integer value", r.ID, c.Op)
			}
		}
	}
	return nil
}
