package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand(os.Stdout).ExecuteContext(ctx)
	cancel()
	if err == nil {
		return
	}
	if !errors.Is(err, errStageFailed) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}
