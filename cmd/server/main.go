/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance tracker server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config (.env honored), apply flag overrides
  2. Initialize SQLite store; provision the initial admin account
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    Listen address (overrides APP_ADDR)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

FIRST RUN:
  When no admin account exists, one is created with a random password
  written to initial_admin_password.txt (0600) in the data directory.
  Set RESET_ADMIN_PASSWORD=1 to reissue it on an existing install.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/bootstrap.go: Admin provisioning
  - config/config.go: Environment configuration
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override env
	addr := flag.String("addr", cfg.Addr, "listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Provision the initial admin account on first run
	ctx := context.Background()
	if pwFile, err := store.EnsureAdmin(ctx, cfg.AdminPasswordOutDir); err != nil {
		log.Fatalf("Failed to provision admin account: %v", err)
	} else if pwFile != "" {
		log.Printf("Initial admin password written to %s", pwFile)
	}
	if cfg.ResetAdminPassword {
		pwFile, err := store.ResetAdminPassword(ctx, cfg.AdminPasswordOutDir)
		if err != nil {
			log.Fatalf("Failed to reset admin password: %v", err)
		}
		log.Printf("Admin password reset; written to %s", pwFile)
	}

	// Initialize handler and router
	tokens := auth.NewTokenManager(cfg.JwtSecret, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	handler := api.NewHandler(store, tokens)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", *addr)
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
