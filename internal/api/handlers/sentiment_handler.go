package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/sosengine/databridge/internal/service"
	"github.com/sosengine/databridge/pkg/utils/response"
)

type SentimentHandler struct {
	SentimentService *service.SentimentService
}

func NewSentimentHandler(sentimentService *service.SentimentService) *SentimentHandler {
	return &SentimentHandler{SentimentService: sentimentService}
}

// GetSentiment returns the current sentiment state
func (h *SentimentHandler) GetSentiment(c echo.Context) error {
	return response.SuccessResponse(c, h.SentimentService.Snapshot())
}
