// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stroke-pipeline/internal/config"
	"stroke-pipeline/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const case1Row = "\"Right-sided weakness, dysarthria\",2018-08-25 21:40,9,yes,yes,no,5,yes,right,178,0.55\n"

// isolate runs the test in an empty directory with no config, .env or secrets
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.ConfigEnvVar, "")
	t.Setenv("STROKE_PIPELINE_CONFIG_DIR", t.TempDir())
	t.Setenv("STROKE_PIPELINE_STORE_DSN", "")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_REVIEW_CHANNEL", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunCSV(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "run", "case1", "--format", "csv")
	require.NoError(t, err)
	lines := strings.SplitAfter(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, case1Row, lines[1])
}

func TestRunAllCSV(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "run", "--all", "--format", "csv", "--parallel", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[1], ",0.55"))
	assert.True(t, strings.HasSuffix(lines[2], ",0.32"))
	assert.True(t, strings.HasSuffix(lines[3], ",0.1"))
}

func TestRunText(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "run", "case3")
	require.NoError(t, err)
	assert.Contains(t, out, "STEP 1: Rule-based Validation")
	assert.Contains(t, out, "Predicted Poor Outcome Probability: 0.1")
	// stdout is not a terminal in tests
	assert.NotContains(t, out, "\x1b[")
}

func TestRunArgumentErrors(t *testing.T) {
	isolate(t)
	tests := [][]string{
		{"run"},
		{"run", "case1", "--all"},
		{"run", "case1", "case2", "--note-file", "note.txt"},
		{"run", "--all", "--parallel", "0"},
	}
	for _, args := range tests {
		_, _, err := execute(t, args...)
		assert.Error(t, err, args)
	}
}

func TestRunUnknownCase(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "run", "case9")
	require.Error(t, err)
	assert.Equal(t, exitUnknown, exitCode(err))
}

func TestRunNoteOverride(t *testing.T) {
	dir := isolate(t)
	note := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(note, []byte("NIHSS 9. Left-sided weakness."), 0600))

	out, _, err := execute(t, "run", "case1", "--note-file", note, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Runs []struct {
			Stages []struct {
				Name    string `json:"name"`
				Flagged bool   `json:"flagged"`
			} `json:"stages"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Runs, 1)
	for _, s := range report.Runs[0].Stages {
		if s.Name == "RAG" {
			assert.False(t, s.Flagged, "no RAG keyword left in the note")
		}
	}
}

func TestThresholdFlag(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "run", "case1", "--format", "json", "--threshold", "0.7")
	require.NoError(t, err)
	assert.Contains(t, out, "Cosine similarity = 0.71 → within validated population patterns.")

	for _, bad := range []string{"-1", "0", "NaN", "5"} {
		_, _, err := execute(t, "run", "case1", "--format", "json", "--threshold", bad)
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "--threshold", bad)
	}
}

func TestExportWritesCaseFile(t *testing.T) {
	dir := isolate(t)
	_, stderr, err := execute(t, "export", "case1")
	require.NoError(t, err)

	path := filepath.Join(dir, "Example Case 1_corrected_output.csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), case1Row))
	assert.Contains(t, stderr, "Wrote Example Case 1_corrected_output.csv")
}

func TestExportToStdoutAndOtherFormat(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "export", "case2", "-o", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, ",0.32\n"))

	out, _, err = execute(t, "export", "case2", "-o", "-", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "predicted_poor_outcome_probability: 0.32")

	_, _, err = execute(t, "export", "case2", "--format", "pdf")
	assert.Error(t, err)
}

func TestCasesAndShow(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "cases")
	require.NoError(t, err)
	assert.Contains(t, out, "Example Case 1")
	assert.Contains(t, out, "case3")

	out, _, err = execute(t, "show", "case1")
	require.NoError(t, err)
	assert.Contains(t, out, "Neurology Note")
	assert.Contains(t, out, "Radiology Report")
	assert.Contains(t, out, "image unavailable")
	assert.Contains(t, out, "tPA_Administered")
}

func TestHistory(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, "history", "case1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audit store")

	t.Setenv("STROKE_PIPELINE_STORE_DSN", "sqlite://"+filepath.Join(dir, "audit.db"))
	for i := 0; i < 2; i++ {
		_, _, err := execute(t, "run", "case1", "--format", "csv")
		require.NoError(t, err)
	}

	out, _, err := execute(t, "history", "case1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "0.55")

	out, _, err = execute(t, "history", "case3")
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded runs")
}

func TestProfiles(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "run", "case1", "--profile", "export")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, case1Row))

	_, _, err = execute(t, "run", "case1", "--profile", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigFile(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "stroke-pipeline.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("defaults:\n  format: csv\n"), 0600))

	out, _, err := execute(t, "run", "case3")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, ",0.1\n"))

	// explicit flag beats the config file
	out, _, err = execute(t, "run", "case3", "--format", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestResolveConfiguration(t *testing.T) {
	isolate(t)
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Defaults.Format = "json"
	cfg.Validation.SimilarityThreshold = 0.9

	set := map[string]bool{}
	isSet := func(name string) bool { return set[name] }
	flags := &configFlags{format: "yaml", threshold: 0.5, verbose: false}

	final := resolveConfiguration(cfg, nil, flags, isSet)
	assert.Equal(t, "json", final.format)
	assert.Equal(t, 0.9, final.threshold)

	final = resolveConfiguration(cfg, cfg.GetProfile("review"), flags, isSet)
	assert.Equal(t, "text", final.format)
	assert.True(t, final.verbose)

	set["format"], set["threshold"], set["verbose"] = true, true, true
	final = resolveConfiguration(cfg, cfg.GetProfile("review"), flags, isSet)
	assert.Equal(t, "yaml", final.format)
	assert.Equal(t, 0.5, final.threshold)
	assert.False(t, final.verbose)

	t.Setenv("STROKE_PIPELINE_STORE_DSN", "audit.db")
	assert.Equal(t, "audit.db", resolveConfiguration(cfg, nil, flags, isSet).storeDSN)
}

func TestResolveConfigurationProfileKeepsUnsetBooleans(t *testing.T) {
	isolate(t)
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Defaults.Verbose = true
	cfg.Defaults.Debug = true

	isSet := func(string) bool { return false }
	final := resolveConfiguration(cfg, cfg.GetProfile("export"), &configFlags{}, isSet)
	assert.True(t, final.verbose)
	assert.True(t, final.debug)
	assert.True(t, final.noColor)
	assert.Equal(t, "csv", final.format)
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stroke-pipeline "))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
	assert.Equal(t, exitUnknown, exitCode(&record.UnknownCaseError{CaseID: "x"}))
	assert.Equal(t, exitValidation, exitCode(fmt.Errorf("wrap: %w", &record.IncompleteRecordError{CaseID: "x"})))
	assert.Equal(t, exitValidation, exitCode(&record.InapplicableError{CaseID: "x"}))
}
