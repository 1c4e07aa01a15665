// Command scribe generates documentation for code repositories.
//
// Run "scribe generate owner/name" to stream a generation session from a
// scribe server, or "scribe serve" to host one.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribehq/scribe/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cli.SetVersion(Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx)
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrCancelled):
		os.Exit(130)
	case errors.Is(err, cli.ErrFailed):
		// The command already reported the failure.
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		os.Exit(1)
	}
}
