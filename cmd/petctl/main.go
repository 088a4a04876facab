package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"petsoft/cmd/petctl/commands"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := commands.NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		commands.PrintError(root.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}
