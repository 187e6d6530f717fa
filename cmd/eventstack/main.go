// cmd/eventstack/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulntor/eventstack/cmd/eventstack/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
