package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hgpack/hgpack/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
