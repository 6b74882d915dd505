package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"areacloud/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.DefaultConfig().FromEnv(os.LookupEnv, log.Default())
	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
