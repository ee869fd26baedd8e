// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"slices"
	"strings"

	"stroke-pipeline/internal/formatters"
	"stroke-pipeline/internal/pipeline"
)

// Formatter implements CSV output formatting: one row per run holding the
// corrected record in schema column order and the predicted probability.
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Corrected structured record with predicted outcome, one row per case"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(runs []*pipeline.Run, options formatters.FormatterOptions) (string, error) {
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs to export")
	}

	header := runs[0].Header()
	csvRows := []string{f.joinRow(header)}

	for _, run := range runs {
		if !slices.Equal(run.Header(), header) {
			return "", fmt.Errorf("case %q uses the %s schema; cannot share a CSV with %q",
				run.CaseID, run.Schema, runs[0].CaseID)
		}
		csvRows = append(csvRows, f.joinRow(run.Row()))
	}

	return strings.Join(csvRows, "\n") + "\n", nil
}

func (f *Formatter) joinRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, field := range fields {
		escaped[i] = f.escapeCSVField(field)
	}
	return strings.Join(escaped, ",")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes spreadsheet formula characters with a single quote
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
