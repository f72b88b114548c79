package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/fbgrab/internal/api"
	"github.com/iconidentify/fbgrab/internal/api/handler"
	"github.com/iconidentify/fbgrab/internal/backend"
	"github.com/iconidentify/fbgrab/internal/config"
	"github.com/iconidentify/fbgrab/internal/repository"
	"github.com/iconidentify/fbgrab/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fbgrab-server %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting fbgrab server",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("backend configured",
		"url", cfg.Backend.URL,
		"public_url", cfg.Backend.PublicURL,
	)

	// Initialize dependencies
	backendClient := backend.NewClient(cfg.Backend)
	backendClient.SetLogger(logger)
	recents := repository.NewInMemoryRecentRepository(cfg.Server.RecentCapacity)

	// Initialize handlers and services
	uiHandler := handler.NewUIHandler(recents, logger)
	gatewaySvc := service.NewGatewayService(backendClient, recents, uiHandler, logger)

	processHandler := handler.NewProcessHandler(gatewaySvc, logger)
	proxyHandler := handler.NewProxyHandler(backendClient, logger)
	healthHandler := handler.NewHealthHandler(backendClient)

	// Setup router
	router := api.NewRouter(processHandler, proxyHandler, healthHandler, uiHandler, api.RouterConfig{
		CORSOrigins:  cfg.Server.CORSOrigins,
		ProcessRate:  cfg.Server.ProcessRate,
		ProcessBurst: cfg.Server.ProcessBurst,
		PageTimeout:  cfg.Server.PageTimeout,
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown; in-flight downloads get the same window
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
