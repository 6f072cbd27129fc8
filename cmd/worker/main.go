package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docupload/internal/config"
	"docupload/internal/database"
	"docupload/internal/netwait"
	"docupload/internal/queue"
	"docupload/internal/repository/postgres"
	"docupload/internal/storage"
	"docupload/internal/worker"
)

func main() {
	cfg := config.Load()
	loc := time.UTC

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := []string{
		net.JoinHostPort(cfg.Database.Host, cfg.Database.Port),
		cfg.MinIO.Endpoint,
		net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
	}
	for _, addr := range deps {
		if err := netwait.WaitTCP(ctx, addr, netwait.DefaultInterval, os.Stderr); err != nil {
			log.Fatalf("dependency wait aborted: %v", err)
		}
	}
	if cfg.StartupGraceSec > 0 {
		time.Sleep(time.Duration(cfg.StartupGraceSec) * time.Second)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	procQueue, err := queue.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize processing queue: %v", err)
	}

	docRepo := postgres.NewDocumentPostgres(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	proc, err := worker.New(docRepo, objStore, procQueue, loc, reg)
	if err != nil {
		log.Fatalf("failed to initialize worker: %v", err)
	}

	// Metrics are served on a dedicated port; the worker has no other HTTP
	// surface.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()

	if err := proc.Run(ctx); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics shutdown: %v", err)
	}
}
