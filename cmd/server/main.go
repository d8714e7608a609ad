// Package main is the entry point for the SOS Bridge
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sosengine/databridge/internal/api"
	"github.com/sosengine/databridge/internal/api/middleware"
	"github.com/sosengine/databridge/internal/config"
	"github.com/sosengine/databridge/internal/provider"
	"github.com/sosengine/databridge/internal/repository"
	"github.com/sosengine/databridge/internal/service"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	godotenv.Load()

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Init logger
	err = zaplogger.InitLogger(db)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// startUpMessage
	zaplogger.Info(cfg.AppName + " - " + cfg.AppVersion + " initialized")
	zaplogger.Info("Postgres initialized")
	zaplogger.Info("Redis initialized")

	// Upstream provider clients
	upstoxClient := provider.NewUpstoxClient(cfg.UpstoxAccessToken)
	nseClient := provider.NewNSEClient()
	trendlyneClient := provider.NewTrendlyneClient()
	tvClient := provider.NewTVScreenerClient()
	yahooClient := provider.NewYahooClient()

	// Services
	symbolService := service.NewSymbolService(db, upstoxClient)
	candleService := service.NewCandleService(symbolService, upstoxClient, tvClient, yahooClient)
	sentimentService := service.NewSentimentService(db, nseClient)
	chainService := service.NewOptionChainService(db, upstoxClient, trendlyneClient)
	backfillService := service.NewBackfillService(trendlyneClient, chainService)
	publishService := service.NewPublishService(cfg, candleService, sentimentService, chainService, redisClient)
	channelService := service.NewChannelService(cfg.PostgresDsn, redisClient)

	// The bridge cannot run without symbol mappings
	if err := symbolService.EnsureLoaded(context.Background()); err != nil {
		zaplogger.Fatal("Failed to load instrument master", zaplogger.Fields{
			"error": err.Error(),
		})
	}

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, db, api.Services{
		Symbols:   symbolService,
		Chains:    chainService,
		Sentiment: sentimentService,
		Publish:   publishService,
	})

	// Setup and start cron jobs
	cronService := service.NewCronService(symbolService, backfillService)
	cronService.Start()

	// Start the supervisor loops
	ctx := context.Background()
	go publishService.Run(ctx)
	go channelService.Run(ctx)

	// Start the server
	startServer(e, cfg)

}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3009"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	e.Logger.Fatal(e.Start(":" + port))

}
