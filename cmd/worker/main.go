// Command worker consumes the task queue: aggregate recomputation,
// notification dispatch and activation email delivery.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"quill/internal/bootstrap"
	"quill/internal/config"
	"quill/internal/taskqueue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	if rdb == nil {
		log.Fatal("Redis is required for the worker; check REDIS_URL")
	}

	queue := taskqueue.New(rdb)
	bootstrap.RegisterTaskHandlers(queue, db, rdb, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Worker consuming task queue...")
	queue.Run(ctx)
	log.Println("Worker shutdown complete")
}
