package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"tronquery/internal/api"
	"tronquery/internal/config"
	"tronquery/internal/db"
	"tronquery/internal/domain"
	"tronquery/internal/export"
	"tronquery/internal/middleware"
	"tronquery/internal/query"
	"tronquery/internal/schema"
	"tronquery/internal/service"
	"tronquery/internal/tron"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DB, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Register models and build the per-model engines
	queryEngine, err := query.NewEngine[domain.AddressQuery](schema.AddressQuery(), conn.Pool)
	if err != nil {
		log.Fatalf("Failed to register AddressQuery model: %v", err)
	}
	transferEngine, err := query.NewEngine[domain.Transfer](schema.Transfer(), conn.Pool)
	if err != nil {
		log.Fatalf("Failed to register Transfer model: %v", err)
	}

	// Entity services
	queryService := service.New(schema.AddressQuery(), queryEngine)
	transferService := service.New(schema.Transfer(), transferEngine)

	// Ledger client and export service
	ledger := tron.NewClient(cfg.Tron)
	exportService := export.NewService(queryService)

	handler := api.NewHandler(queryService, transferService, ledger)
	routes := handler.Routes(export.NewHTTPHandler(exportService))

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	apiHandler := middleware.LoggingMiddleware(
		middleware.DataLoaderMiddleware(queryEngine)(routes),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(apiHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting tronquery server on %s", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
