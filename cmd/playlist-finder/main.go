package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"playlist-finder-go/executor"
	"playlist-finder-go/services/finder"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitNotFound  = 2
	exitQuota     = 3
	exitCancelled = 130
)

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, finder.ErrNotFound):
		return exitNotFound
	case errors.Is(err, executor.ErrQuotaExceeded):
		return exitQuota
	case errors.Is(err, finder.ErrCancelled), errors.Is(err, context.Canceled):
		return exitCancelled
	}
	return exitFailure
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "playlist-finder:", err)
	}
	cancel()
	os.Exit(exitCode(err))
}
