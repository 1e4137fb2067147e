// Command docket ingests planning documents and serves semantic search
// over them from the command line or as an MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docket/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docket/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Environment first so that ${VAR} references in the config resolve.
	if err := file.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "docket: loading .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, cli.App{
		Version:  version,
		Settings: openSettings,
		Services: buildServices,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "docket: %v\n", err)
		stop()
		os.Exit(1)
	}
}
