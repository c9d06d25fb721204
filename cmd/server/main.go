/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payment certificate server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (environment fallbacks)
  2. Open the store (SQLite file, ":memory:", or "mem")
  3. Load settings (defaults are persisted on first run)
  4. Build the service, API handler and router
  5. Optionally load a demo scenario
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, env PAYCERT_PORT)
  -db      SQLite database path (default: paycert.db, env PAYCERT_DB)
           ":memory:" for in-memory SQLite, "mem" for the map-backed store
  -seed    Demo scenario to load at startup (e.g. "mock-data")

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/paycert.db"
  ./server -db=mem -seed=mock-data
  PAYCERT_PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - certificate/service.go: Write path
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/warp/paycert/api"
	"github.com/warp/paycert/certificate"
	"github.com/warp/paycert/certificate/store"
	"github.com/warp/paycert/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", envInt("PAYCERT_PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("PAYCERT_DB", "paycert.db"), `SQLite database path, or "mem" for the in-memory store`)
	seed := flag.String("seed", "", "Demo scenario to load at startup")
	flag.Parse()

	ctx := context.Background()

	// Initialize store
	backend, closer, err := openStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closer.Close()

	cfg, err := certificate.LoadConfig(ctx, backend)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	rates := cfg.Rates()
	log.Printf("Settings loaded: VAT %s%%, retention %s%%", rates.VATRate, rates.RetentionRate)

	svc := certificate.NewService(backend, cfg, backend)
	handler := api.NewHandler(svc, backend)

	if *seed != "" {
		if err := handler.Seed(ctx, *seed); err != nil {
			log.Fatalf("Failed to load scenario %q: %v", *seed, err)
		}
		log.Printf("Loaded scenario %q", *seed)
	}

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(path string) (api.Backend, io.Closer, error) {
	if path == "mem" {
		log.Println("Using in-memory store; data is lost on exit")
		return store.NewMemory(), nopCloser{}, nil
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}
