// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// stroke-pipeline validates, corrects and scores stroke case records.
//
// Usage:
//
//	stroke-pipeline cases
//	stroke-pipeline show <case>
//	stroke-pipeline run [case...] [--all] [--format text|csv|json|yaml|junit] [-o file]
//	stroke-pipeline export <case> [-o file]
//	stroke-pipeline history <case> [--limit n]
//	stroke-pipeline serve [--port n]
//	stroke-pipeline version
package main

import (
	"errors"
	"fmt"
	"os"

	"stroke-pipeline/internal/record"

	// Import formatters to register them
	_ "stroke-pipeline/internal/formatters/csv"
	_ "stroke-pipeline/internal/formatters/json"
	_ "stroke-pipeline/internal/formatters/junit"
	_ "stroke-pipeline/internal/formatters/text"
	_ "stroke-pipeline/internal/formatters/yaml"
)

// Exit codes
const (
	exitOK         = 0
	exitError      = 1
	exitUnknown    = 2
	exitValidation = 3
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

// exitCode maps domain errors onto distinct process exit codes
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, record.ErrUnknownCase):
		return exitUnknown
	case errors.Is(err, record.ErrIncompleteRecord), errors.Is(err, record.ErrValidationInapplicable):
		return exitValidation
	default:
		return exitError
	}
}
