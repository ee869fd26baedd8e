// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/sources"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCasesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cases",
		Short: "List the cases in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := cases.Load(a.final.catalog)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tSCHEMA\tSIMILARITY\tTITLE")
			for _, c := range catalog.Cases {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", c.ID, c.Slug, c.Schema().Name, c.Similarity, c.Title)
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <case>",
		Short: "Show a case's source documents and extraction record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := cases.Load(a.final.catalog)
			if err != nil {
				return err
			}
			c, err := catalog.Lookup(args[0])
			if err != nil {
				return err
			}

			heading := color.New(color.Bold, color.FgCyan)
			if a.final.noColor {
				heading.DisableColor()
			} else {
				heading.EnableColor()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s schema)\n\n", heading.Sprint(c.Title), c.Schema().Name)
			fmt.Fprintln(out, heading.Sprint("Neurology Note"))
			fmt.Fprintf(out, "%s\n\n", strings.TrimSpace(c.Note))
			fmt.Fprintln(out, heading.Sprint("Radiology Report"))
			fmt.Fprintf(out, "%s\n\n", strings.TrimSpace(c.Report))

			fmt.Fprintln(out, heading.Sprint("ASPECTS CT Image"))
			if c.Image == "" {
				fmt.Fprintln(out, "  none")
			} else if info, err := sources.Image(sources.ResolveAsset(a.final.assetsDir, c.Image)); err != nil {
				fmt.Fprintf(out, "  %s: %v\n", c.Image, err)
			} else {
				fmt.Fprintf(out, "  %s (%d bytes)\n", info.Path, info.SizeBytes)
				if info.AcquiredAt != nil {
					fmt.Fprintf(out, "  acquired %s\n", info.AcquiredAt.Format("2006-01-02 15:04"))
				}
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, heading.Sprint("Extracted Record"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, name := range c.Schema().Order(c.Extraction) {
				fmt.Fprintf(tw, "  %s\t%s\n", name, c.Extraction[name].String())
			}
			return tw.Flush()
		},
	}
}
