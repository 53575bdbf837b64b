package main

import (
	"context"
	"fmt"
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/services"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if services.IsInputError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
