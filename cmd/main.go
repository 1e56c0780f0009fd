/*
Package main is the entry point for the human-or-it game server.

It loads configuration, initializes the global logging system, wires the
text-generation client into the room Manager, sets up the HTTP server, and
handles operating system interrupt signals (SIGINT, SIGTERM) for a graceful
shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"humanorit/internal/app/game"
	"humanorit/internal/app/llm"
	"humanorit/internal/configs"
	"humanorit/internal/handler"
	"humanorit/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("gemini_key_present", cfg.GeminiAPIKey != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Game settings, with optional env overrides
	settings := game.DefaultSettings()
	if cfg.GameDurationSeconds > 0 {
		settings.GameDuration = time.Duration(cfg.GameDurationSeconds) * time.Second
	}
	if cfg.GenerateTimeoutSeconds > 0 {
		settings.GenerateTimeout = time.Duration(cfg.GenerateTimeoutSeconds) * time.Second
	}

	// Text-generation client and room Manager
	generator := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	manager := game.NewManager(generator, settings)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Manager: manager,
		Config:  cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Game server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
