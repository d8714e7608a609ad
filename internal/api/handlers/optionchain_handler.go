package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sosengine/databridge/internal/service"
	"github.com/sosengine/databridge/pkg/utils/response"
)

type OptionChainHandler struct {
	ChainService *service.OptionChainService
}

func NewOptionChainHandler(chainService *service.OptionChainService) *OptionChainHandler {
	return &OptionChainHandler{ChainService: chainService}
}

// GetLatestChain returns the most recent persisted chain for a symbol
func (h *OptionChainHandler) GetLatestChain(c echo.Context) error {
	symbol := strings.ToUpper(c.Param("symbol"))
	if len(symbol) == 0 || symbol == ":SYMBOL" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`symbol` is required")
	}

	chain, err := h.ChainService.LatestChain(symbol)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, chain)
}

// GetLatestAggregate returns the most recent OI totals and PCR for a symbol
func (h *OptionChainHandler) GetLatestAggregate(c echo.Context) error {
	symbol := strings.ToUpper(c.Param("symbol"))
	if len(symbol) == 0 || symbol == ":SYMBOL" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`symbol` is required")
	}

	aggregate, err := h.ChainService.LatestAggregate(symbol)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	if aggregate == nil {
		return response.ErrorResponse(c, http.StatusNotFound, "DataException", "no snapshot recorded for `"+symbol+"`")
	}
	return response.SuccessResponse(c, aggregate)
}
