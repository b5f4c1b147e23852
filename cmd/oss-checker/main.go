package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/warren2314/OSS-Checker/pkg"
	"github.com/warren2314/OSS-Checker/pkg/log"
)

var (
	version = "0.0.1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ac := pkg.AppConfig{
		Context: ctx,
	}

	app := ac.NewApp(version)
	if err := app.Run(os.Args); err != nil {
		log.Error("Fatal error", log.Err(err))
		stop()
		os.Exit(1)
	}
}
