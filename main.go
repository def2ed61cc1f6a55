package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forecast-dashboard/api"
	"forecast-dashboard/datasource"
	"forecast-dashboard/providers/openweathermap"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	// Parse command line arguments
	port := flag.Int("port", 0, "Port to run the server on (overrides PORT)")
	configFile := flag.String("config", "config.json", "Path to optional configuration file")
	enableRateLimiting := flag.Bool("rate-limit", true, "Enable API rate limiting")
	flag.Parse()

	config, err := datasource.LoadConfig(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		config.Port = *port
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.SlogLevel()}))
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}
	if err := config.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var source datasource.ForecastSource = openweathermap.NewOpenWeatherMapForecastSource(
		config.OpenWeatherMap.APIKey,
		openweathermap.WithBaseURL(config.OpenWeatherMap.BaseURL),
		openweathermap.WithUnits(config.OpenWeatherMap.Units),
		openweathermap.WithTimeout(time.Duration(config.HTTPTimeout)),
		openweathermap.WithLogger(logger),
	)

	// Apply rate limiting if enabled
	if *enableRateLimiting && config.RateLimitRPS > 0 {
		source = datasource.NewRateLimitedForecastSource(source, config.RateLimitRPS, config.RateLimitBurst)
		logger.Info("applied rate limiting", "rps", config.RateLimitRPS, "burst", config.RateLimitBurst)
	}

	server := api.NewServer(source, config.Port, logger)

	// Set up channels for graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case sig := <-shutdownChan:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}

	logger.Info("shutdown complete")
}
