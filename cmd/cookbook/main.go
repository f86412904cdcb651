// Command cookbook reads variables from a catalogued collection of netCDF
// files.
//
// Logging:
//   - Base logger is created by the cli package from the resolved settings
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"os"
	"os/signal"

	"cookbook/cmd/cookbook/cli"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := cli.NewRootCommand(version).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
