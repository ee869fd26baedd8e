// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the three caller-visible failure kinds
var (
	ErrUnknownCase            = errors.New("unknown case")
	ErrIncompleteRecord       = errors.New("incomplete extraction record")
	ErrValidationInapplicable = errors.New("validation rule not applicable to schema")
)

// UnknownCaseError reports a selector outside the case catalog
type UnknownCaseError struct {
	CaseID string
	Known  []string
}

func (e *UnknownCaseError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown case %q", e.CaseID)
	}
	return fmt.Sprintf("unknown case %q (known: %s)", e.CaseID, strings.Join(e.Known, ", "))
}

func (e *UnknownCaseError) Unwrap() error {
	return ErrUnknownCase
}

// IncompleteRecordError lists the schema fields absent from an extraction record
type IncompleteRecordError struct {
	CaseID  string
	Missing []string
}

func (e *IncompleteRecordError) Error() string {
	return fmt.Sprintf("case %q: extraction record missing required fields: %s",
		e.CaseID, strings.Join(e.Missing, ", "))
}

func (e *IncompleteRecordError) Unwrap() error {
	return ErrIncompleteRecord
}

// InapplicableError reports a rule that references a field outside the case schema
type InapplicableError struct {
	CaseID string
	RuleID string
	Field  string
	Schema string
}

func (e *InapplicableError) Error() string {
	return fmt.Sprintf("case %q: rule %q references field %q which is not part of the %s schema",
		e.CaseID, e.RuleID, e.Field, e.Schema)
}

func (e *InapplicableError) Unwrap() error {
	return ErrValidationInapplicable
}
