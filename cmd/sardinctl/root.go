// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sardinai/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "sardinctl",
		Short: "Operator CLI for the SARDIN-AI real-time hub",
		Long: `sardinctl talks to a running SARDIN-AI server.

  sardinctl tail     Stream topic updates as JSON lines
  sardinctl alert    Push an operator alert to every alert subscriber`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Init(logging.Config{
				Level:     logLevel,
				Format:    "console",
				Timestamp: true,
				Output:    cmd.ErrOrStderr(),
			})
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("token", os.Getenv("SARDINAI_TOKEN"), "bearer token (default $SARDINAI_TOKEN)")

	root.AddCommand(newTailCmd(), newAlertCmd())
	return root
}
