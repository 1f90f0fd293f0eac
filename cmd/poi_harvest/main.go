package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"poi-harvest/internal/cli"
)

func main() {
	// Interrupting a harvest leaves the progress file in place for the next run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
