package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/notedcloud/noted/pkg/server"
)

func main() {
	// Cancel on SIGINT/SIGTERM so the server shuts down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
