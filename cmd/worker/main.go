package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"faceattend/internal/archive"
	"faceattend/internal/config"
	"faceattend/internal/queue"
	"faceattend/internal/sqlstore"
)

// Worker consumes attendance.recorded events and archives each capture image
// to Cloudinary, then stores the URL on the attendance record.
func main() {
	cfg := config.Load()
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := sqlstore.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	cdn, err := newArchiveClient(cfg)
	if err != nil {
		log.Fatalf("cloudinary: %v", err)
	}
	log.Println("Cloudinary configured:", cdn.CloudName)

	redisClient := queue.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient, cfg.QueueKey)
	if err := q.Ping(ctx); err != nil {
		log.Printf("WARNING: redis not reachable yet: %v", err)
	}

	w := &archive.Worker{Queue: q, Uploader: cdn, Records: db}
	log.Println("worker started, waiting for messages...")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker: %v", err)
	}
	log.Println("worker stopped")
}

func newArchiveClient(cfg config.App) (*archive.Client, error) {
	if cfg.CloudinaryURL != "" {
		return archive.ParseURL(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	}
	c := archive.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if !c.Configured() {
		return nil, archive.ErrNotConfigured
	}
	return c, nil
}
