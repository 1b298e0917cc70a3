// Package main runs the forge HTTP service: the /v1 API, a WebSocket event
// feed, Prometheus metrics and a health check.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenforge/internal/api"
	"tokenforge/internal/config"
	"tokenforge/internal/events"
	"tokenforge/internal/forge"
	"tokenforge/internal/observability"
	"tokenforge/internal/storage"
	boltstore "tokenforge/internal/storage/bolt"
	chstore "tokenforge/internal/storage/clickhouse"
	"tokenforge/internal/storage/memory"
	"tokenforge/internal/storage/migrations"
	pgstore "tokenforge/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Store, "store", cfg.Store, "Account store: memory, postgres or bolt (bolt serializes writers instead of rejecting conflicts)")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.BoltPath, "bolt-path", cfg.BoltPath, "bbolt database file")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (enables event analytics)")
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	flag.BoolVar(&cfg.Faucet, "faucet", cfg.Faucet, "Enable POST /v1/airdrop")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Store, err)
	}
	defer closeStore()

	hub := events.NewHub(nil, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lshortfile))
	defer hub.Close()

	sinks := events.Fanout{hub}
	var history api.History
	if cfg.ClickhouseDSN != "" {
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to prepare clickhouse: %v", err)
		}
		defer conn.Close()
		eventStore := chstore.NewEventStore(conn)
		sinks = append(sinks, eventStore)
		history = eventStore
		logger.Printf("ClickHouse event sink enabled, applied migrations: %v", applied)
	}

	program, err := forge.NewProgram(forge.Options{
		Store:     store,
		ProgramID: cfg.ProgramID,
		Logger:    log.New(os.Stdout, "[forge] ", log.LstdFlags|log.Lshortfile),
		Sink:      sinks,
	})
	if err != nil {
		logger.Fatalf("Failed to create program: %v", err)
	}
	logger.Printf("Program %s, mint authority %s", program.ProgramID(), program.MintAuthority().Address())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/ws", hub)
	mux.Handle("/v1/", api.NewHandler(api.Options{
		Forge:   program,
		History: history,
		Faucet:  cfg.Faucet,
		Logger:  logger,
	}))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Starting HTTP server on %s (store=%s, faucet=%v)", cfg.HTTPAddr, cfg.Store, cfg.Faucet)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Println("Received shutdown signal, draining connections...")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed after %v: %v", cfg.ShutdownTimeout, err)
	}

	logger.Println("Shutdown complete")
}

// openStore creates the configured account store and its cleanup func.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (storage.AccountStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Printf("Applied postgres migrations: %v", applied)
		return pgstore.NewAccountStore(pool), pool.Close, nil

	case config.StoreBolt:
		store, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Printf("close bolt store: %v", err)
			}
		}, nil

	default:
		logger.Println("Using in-memory account store; state is lost on exit")
		return memory.NewAccountStore(), func() {}, nil
	}
}
