package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"resulthub/internal/platform/config"
	"resulthub/internal/platform/httpserver"
	"resulthub/internal/platform/logger"
	"resulthub/internal/results/fallback"
	"resulthub/internal/results/handler"
	"resulthub/internal/results/metrics"
	"resulthub/internal/results/service"
	"resulthub/internal/results/sources"
	"resulthub/internal/results/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Resolution logic lives in internal/results.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if len(cfg.Sources) == 0 {
		log.Error("no result sources configured; set SOURCE_<NAME>_URL for each name in SEARCH_ORDER")
		os.Exit(1)
	}

	registry := sources.New()
	for _, src := range cfg.Sources {
		db, err := sql.Open("postgres", config.DSN(src))
		if err != nil {
			log.Error("open source connection failed", "source", src.Name, "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)

		err = registry.Register(sources.Source{
			Name:        src.Name,
			Endpoint:    src.URL,
			Credential:  src.Key,
			Description: src.Description,
		}, store.NewPostgres(db))
		if err != nil {
			log.Error("register source failed", "source", src.Name, "error", err)
			os.Exit(1)
		}
	}
	if err := registry.SetSearchOrder(cfg.SearchOrder); err != nil {
		log.Error("invalid search order", "error", err)
		os.Exit(1)
	}

	apis := make([]fallback.API, 0, len(cfg.WebAPIs))
	for _, api := range cfg.WebAPIs {
		apis = append(apis, fallback.API{Name: api.Name, BaseURL: api.BaseURL})
	}
	fallbackClient := fallback.New(apis,
		fallback.WithLogger(log),
		fallback.WithHTTPClient(&http.Client{Timeout: cfg.FallbackTimeout}),
	)

	svc, err := service.New(registry, fallbackClient,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithQueryTimeout(cfg.QueryTimeout),
	)
	if err != nil {
		log.Error("build resolution service failed", "error", err)
		os.Exit(1)
	}

	router := handler.NewRouter(handler.New(svc, log))
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting resulthub",
		"addr", cfg.Addr,
		"sources", cfg.SearchOrder,
		"web_apis", fallbackClient.Names(),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
