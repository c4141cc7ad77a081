package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskgate-org/riskgate/cli/riskgate/cmd"
	"github.com/riskgate-org/riskgate/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.New(logger.New).Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "riskgate: %v\n", err)
		stop()
		os.Exit(1)
	}
}
