// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package correction

import (
	"fmt"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/record"
	"stroke-pipeline/internal/validation"
)

// Change records one field overwritten by the correction table
type Change struct {
	Field string       `json:"field" yaml:"field"`
	From  record.Value `json:"from" yaml:"from"`
	To    record.Value `json:"to" yaml:"to"`
}

// Outcome is the corrected record plus what changed. Diff is in schema order.
type Outcome struct {
	Record  record.Record `json:"record" yaml:"record"`
	Changed bool          `json:"changed" yaml:"changed"`
	Diff    []Change      `json:"diff" yaml:"diff"`
}

// Apply overwrites flagged records with the case's correction table. Records
// with no flagged finding come back unchanged. The input record is not modified.
func Apply(c *cases.Case, extracted record.Record, result *validation.Result) (*Outcome, error) {
	if c == nil {
		return nil, &record.UnknownCaseError{}
	}
	if result == nil {
		return nil, fmt.Errorf("case %q: no validation result to correct from", c.ID)
	}

	out := &Outcome{Record: extracted.Clone(), Diff: []Change{}}
	if !result.Flagged() || len(c.Corrections) == 0 {
		return out, nil
	}

	for _, field := range c.Schema().Order(c.Corrections) {
		to := c.Corrections[field]
		from, present := out.Record[field]
		if present && from.Equal(to) {
			continue
		}
		out.Record[field] = to
		out.Diff = append(out.Diff, Change{Field: field, From: from, To: to})
	}
	out.Changed = len(out.Diff) > 0
	return out, nil
}

// Lookup returns the change for a field, if any
func (o *Outcome) Lookup(field string) (Change, bool) {
	for _, ch := range o.Diff {
		if ch.Field == field {
			return ch, true
		}
	}
	return Change{}, false
}
