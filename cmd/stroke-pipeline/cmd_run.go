// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"stroke-pipeline/internal/formatters"
	"stroke-pipeline/internal/pipeline"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		all        bool
		noteFile   string
		reportFile string
		output     string
		parallel   int
	)

	cmd := &cobra.Command{
		Use:   "run [case...]",
		Short: "Validate, correct and score one or more cases",
		Example: "  stroke-pipeline run case1\n" +
			"  stroke-pipeline run --all --format csv -o results.csv\n" +
			"  stroke-pipeline run case2 --note-file note.pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("specify one or more cases or --all")
			}
			if (noteFile != "" || reportFile != "") && len(args) != 1 {
				return fmt.Errorf("--note-file and --report-file apply to a single case")
			}
			if cmd.Flags().Changed("parallel") {
				a.final.parallel = parallel
			}
			if a.final.parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1")
			}

			runner, cleanup, err := a.newRunner(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			ids := args
			if all {
				ids = runner.Catalog().IDs()
			}

			var runs []*pipeline.Run
			if len(ids) == 1 {
				run, err := runner.Run(cmd.Context(), ids[0], pipeline.Sources{NotePath: noteFile, ReportPath: reportFile})
				if err != nil {
					return err
				}
				runs = []*pipeline.Run{run}
			} else if runs, err = runner.RunAll(cmd.Context(), ids, a.final.parallel); err != nil {
				return err
			}

			content, err := formatters.Export(a.final.format, runs, formatters.FormatterOptions{
				Verbose: a.final.verbose,
				NoColor: a.final.noColor || output != "",
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, content)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&all, "all", false, "Run every case in the catalog")
	f.StringVar(&noteFile, "note-file", "", "Replace the catalog neurology note with a text or PDF file")
	f.StringVar(&reportFile, "report-file", "", "Replace the catalog radiology report with a text or PDF file")
	f.StringVarP(&output, "output", "o", "", "Write output to a file instead of stdout")
	f.IntVar(&parallel, "parallel", 1, "Maximum cases evaluated at once")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <case>",
		Short: "Write the corrected record and prediction to <case>_corrected_output.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := "csv"
			if cmd.Flags().Changed("format") {
				format = a.final.format
			}
			info := formatters.GetFormatInfo(format)
			if info.Name == "" {
				_, err := formatters.Export(format, nil, formatters.FormatterOptions{})
				return err
			}

			runner, cleanup, err := a.newRunner(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			run, err := runner.Run(cmd.Context(), args[0], pipeline.Sources{})
			if err != nil {
				return err
			}
			runs := []*pipeline.Run{run}
			content, err := formatters.Export(format, runs, formatters.FormatterOptions{
				Verbose: a.final.verbose,
				NoColor: true,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = formatters.FileName(runs, info.Extension)
			}
			if err := writeOutput(cmd.OutOrStdout(), output, content); err != nil {
				return err
			}
			if output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout (default: <case id>_corrected_output.csv)")
	return cmd
}

// writeOutput writes content to path, or to stdout when path is empty or "-"
func writeOutput(stdout io.Writer, path, content string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(filepath.Clean(path), []byte(content), 0600); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	return nil
}
