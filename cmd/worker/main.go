// The worker binary runs a standalone generation worker pool against the
// shared database. The claim query is atomic, so extra worker processes
// can run alongside the server's in-process pool.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	dbfs "github.com/lessonforge/lessonforge/db"
	"github.com/lessonforge/lessonforge/internal/config"
	"github.com/lessonforge/lessonforge/internal/db"
	"github.com/lessonforge/lessonforge/internal/generation"
	"github.com/lessonforge/lessonforge/internal/jobs"
	"github.com/lessonforge/lessonforge/internal/repository/sqlite"
	"github.com/lessonforge/lessonforge/pkg/genai"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting lessonforge worker version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	engine, err := genai.NewDefaultClient(cfg.Engine)
	if err != nil {
		log.Fatalf("Failed to create content service client: %v", err)
	}

	repo := sqlite.New(database, nil)
	pipeline := generation.NewPipeline(engine, repo, repo, nil)
	pool := jobs.NewWorkerPool(repo, pipeline.Handler(repo), nil, cfg.Worker)
	pool.Start(ctx)
	log.Printf("Worker pool started with %d workers", cfg.Worker.Count)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down worker...")

	pool.Stop()
	if err := engine.Close(); err != nil {
		log.Printf("Error closing content service client: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Worker exited")
}
