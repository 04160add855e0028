// Command aeroctl is the operator console for the fleet: it signs in, watches
// live telemetry and alerts, and issues vehicle commands and mission
// assignments through the confirmation pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(&cli{in: os.Stdin}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
