package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/sosengine/databridge/internal/service"
	"github.com/sosengine/databridge/pkg/utils/response"
)

type BridgeHandler struct {
	PublishService *service.PublishService
}

func NewBridgeHandler(publishService *service.PublishService) *BridgeHandler {
	return &BridgeHandler{PublishService: publishService}
}

// GetStatus returns the streaming connection status
func (h *BridgeHandler) GetStatus(c echo.Context) error {
	return response.SuccessResponse(c, h.PublishService.Status())
}
