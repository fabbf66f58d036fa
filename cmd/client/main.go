package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iudanet/petalsync/internal/client/cli"
	"github.com/iudanet/petalsync/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	info := cli.BuildInfo{Version: Version, BuildDate: BuildDate, GitCommit: GitCommit}

	if err := cli.Execute(context.Background(), iocli.NewStdio(), info, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
