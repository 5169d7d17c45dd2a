// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Command sardinctl is the SARDIN-AI operator CLI.
//
//	sardinctl tail --url ws://localhost:3857/ws --topics alert,vessel --token $TOKEN
//	sardinctl alert --type storm_warning --severity high --message "Gale from 18:00" --lat 32.7 --lon -117.3
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
