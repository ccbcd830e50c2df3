// Package main is the entry point for the thermostat automation server.
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

	"github.com/smart-thermostat/backend/internal/api"
	"github.com/smart-thermostat/backend/internal/calendar"
	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/schedule"
	"github.com/smart-thermostat/backend/internal/secrets"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/thermostat"
	"github.com/smart-thermostat/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	cfg := config.Load()

	// Parse command-line flags; flags win over the environment
	addr := flag.String("addr", cfg.Addr, "HTTP server address")
	dataDir := flag.String("data", cfg.DataDir, "Data directory for SQLite database")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting thermostat automation server (version: %s)...", version)

	// The credential cipher is required: stored vendor tokens are useless
	// without it.
	cipher, err := secrets.New(cfg.CipherKey)
	if err != nil {
		log.Fatalf("SECRET_BOX_KEY must be set: %v", err)
	}

	// Initialize database
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", *dataDir, err)
	}
	dbPath := *dataDir + "/smart-thermostat.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories
	propertyRepo := storage.NewPropertyRepository(db)
	calendarRepo := storage.NewCalendarRepository(db)
	thermostatRepo := storage.NewThermostatRepository(db)
	commandRepo := storage.NewCommandRepository(db)
	accountRepo := storage.NewVendorAccountRepository(db)
	actionRepo := storage.NewActionRepository(db)
	statsRepo := storage.NewStatisticsRepository(db)

	// Initialize the vendor adapter registry and command manager
	registry := thermostat.NewRegistry(accountRepo, cipher, cfg)
	manager := thermostat.NewManager(thermostatRepo, commandRepo, statsRepo, registry, hub)

	// Initialize the scheduling engine: scanner feeds the action queue, the
	// dispatcher drains it through the executor
	executor := schedule.NewExecutor(calendarRepo, thermostatRepo, registry, cfg)
	dispatcher := schedule.NewQueueDispatcher(actionRepo, executor, hub, cfg.DispatchSpec)
	scanner := schedule.NewScanner(calendarRepo, dispatcher, cfg)

	// Booking feed sync keeps calendar events current with listing platforms
	feedSync := calendar.NewSyncService(propertyRepo, calendarRepo)
	feedScheduler := calendar.NewScheduler(feedSync, hub, cfg.FeedSyncSpec)

	if err := dispatcher.Start(); err != nil {
		log.Fatalf("Failed to start action dispatcher: %v", err)
	}
	if err := scanner.Start(); err != nil {
		log.Fatalf("Failed to start calendar scanner: %v", err)
	}
	if err := feedScheduler.Start(); err != nil {
		log.Fatalf("Failed to start feed sync scheduler: %v", err)
	}

	// Initialize HTTP router
	router := api.NewRouter(api.Deps{
		Config:      cfg,
		DB:          db,
		Hub:         hub,
		Cipher:      cipher,
		Properties:  propertyRepo,
		Events:      calendarRepo,
		Thermostats: thermostatRepo,
		Commands:    commandRepo,
		Accounts:    accountRepo,
		Actions:     actionRepo,
		Stats:       statsRepo,
		Manager:     manager,
		Scanner:     scanner,
		FeedSync:    feedSync,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop schedulers
	feedScheduler.Stop()
	scanner.Stop()
	dispatcher.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
