// Package api contains the API routes for the SOS Bridge
package api

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/sosengine/databridge/internal/api/handlers"
	"github.com/sosengine/databridge/internal/config"
	"github.com/sosengine/databridge/internal/service"
	"github.com/sosengine/databridge/pkg/utils/response"
	"gorm.io/gorm"
)

// Services carries the service instances shared with the supervisor loops
type Services struct {
	Symbols   *service.SymbolService
	Chains    *service.OptionChainService
	Sentiment *service.SentimentService
	Publish   *service.PublishService
}

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, db *gorm.DB, svc Services) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute)

	// Instrument routes
	instrumentHandler := handlers.NewInstrumentHandler(db, svc.Symbols)
	instrumentGroup := api.Group("/instrument")
	instrumentGroup.GET("/query", instrumentHandler.QueryInstruments)
	instrumentGroup.GET("/resolve", instrumentHandler.Resolve)
	instrumentGroup.GET("/symbols", instrumentHandler.ReverseResolve)
	instrumentGroup.POST("/update", instrumentHandler.UpdateInstruments)

	// Optionchain routes
	optionChainHandler := handlers.NewOptionChainHandler(svc.Chains)
	optionchainGroup := api.Group("/optionchain")
	optionchainGroup.GET("/:symbol", optionChainHandler.GetLatestChain)
	optionchainGroup.GET("/:symbol/aggregate", optionChainHandler.GetLatestAggregate)

	// Sentiment routes
	sentimentHandler := handlers.NewSentimentHandler(svc.Sentiment)
	api.GET("/sentiment", sentimentHandler.GetSentiment)

	// Bridge routes
	bridgeHandler := handlers.NewBridgeHandler(svc.Publish)
	bridgeGroup := api.Group("/bridge")
	bridgeGroup.GET("/status", bridgeHandler.GetStatus)
}

// indexRoute sets up the index route for the API
func indexRoute(c echo.Context) error {
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	message := fmt.Sprintf("%s %s", cfg.AppName, cfg.AppVersion)
	return response.SuccessResponse(c, message)
}
