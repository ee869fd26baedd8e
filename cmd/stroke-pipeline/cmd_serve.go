// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"stroke-pipeline/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the case API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.final.port = port
			}
			if a.final.port < 1 || a.final.port > 65535 {
				return fmt.Errorf("invalid port %d", a.final.port)
			}
			if !a.final.debug {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner, cleanup, err := a.newRunner(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			addr := fmt.Sprintf(":%d", a.final.port)
			fmt.Fprintf(cmd.OutOrStdout(), "stroke-pipeline API listening on http://localhost%s\n", addr)
			return web.NewServer(runner, a.final.cors).Serve(ctx, addr)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}
