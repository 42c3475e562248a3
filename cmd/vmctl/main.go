// Command vmctl is the command-line client for vanillameta connections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/advanced-rising/vanillameta/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
