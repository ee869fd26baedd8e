// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"stroke-pipeline/internal/pipeline"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <case>",
		Short: "List recorded runs of a case from the audit store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.final.storeDSN == "" {
				return fmt.Errorf("no audit store configured (set store.dsn or STROKE_PIPELINE_STORE_DSN)")
			}
			runner, cleanup, err := a.newRunner(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := runner.Catalog().Lookup(args[0])
			if err != nil {
				return err
			}
			entries, err := runner.Store().List(cmd.Context(), c.ID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No recorded runs for %s\n", c.ID)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECORDED\tFLAGGED\tREVIEW\tCHANGED\tPROBABILITY")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%t\t%t\t%s\n",
					e.RecordedAt.Local().Format(time.DateTime), e.FlaggedCount, e.ReviewRequired, e.Changed,
					pipeline.FormatProbability(e.Probability))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 for all)")
	return cmd
}
