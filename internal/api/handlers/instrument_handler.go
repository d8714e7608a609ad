// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sosengine/databridge/internal/models"
	"github.com/sosengine/databridge/internal/repository"
	"github.com/sosengine/databridge/internal/service"
	"github.com/sosengine/databridge/pkg/utils/response"
	"gorm.io/gorm"
)

type InstrumentHandler struct {
	Repo          *repository.InstrumentRepository
	SymbolService *service.SymbolService
}

func NewInstrumentHandler(db *gorm.DB, symbolService *service.SymbolService) *InstrumentHandler {
	return &InstrumentHandler{
		Repo:          repository.NewInstrumentRepository(db),
		SymbolService: symbolService,
	}
}

// UpdateInstrumentsResponseData is the response data for the UpdateInstruments endpoint
type UpdateInstrumentsResponseData struct {
	Timestamp string `json:"timestamp"`
	Records   int64  `json:"records"`
}

// UpdateInstruments re-downloads the instrument master
func (h *InstrumentHandler) UpdateInstruments(c echo.Context) error {
	if err := h.SymbolService.RefreshInstruments(c.Request().Context()); err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	records, err := h.Repo.GetInstrumentsRecordCount()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}

	responseData := UpdateInstrumentsResponseData{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Records:   records,
	}
	return response.SuccessResponse(c, responseData)
}

// QueryInstruments returns instruments matching the query params
func (h *InstrumentHandler) QueryInstruments(c echo.Context) error {
	params := models.QueryInstrumentsParams{
		Tradingsymbol: c.QueryParam("tradingsymbol"),
		Name:          c.QueryParam("name"),
		Segment:       c.QueryParam("segment"),
		ISIN:          c.QueryParam("isin"),
	}
	if params == (models.QueryInstrumentsParams{}) {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "at least one query param is required")
	}

	instruments, err := h.Repo.QueryInstruments(params)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, instruments)
}

// ResolveResponseData is the response data for the Resolve endpoint
type ResolveResponseData struct {
	Symbol        string `json:"symbol"`
	InstrumentKey string `json:"instrument_key"`
}

// Resolve maps trading symbols to instrument keys
func (h *InstrumentHandler) Resolve(c echo.Context) error {
	symbols := c.QueryParams()["s"]
	if len(symbols) == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`s` is required")
	}

	result := make([]ResolveResponseData, 0, len(symbols))
	for _, symbol := range symbols {
		key, err := h.SymbolService.Resolve(symbol)
		if err != nil {
			if errors.Is(err, service.ErrSymbolNotFound) {
				return response.ErrorResponse(c, http.StatusNotFound, "InputException", "unknown symbol `"+symbol+"`")
			}
			return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
		}
		result = append(result, ResolveResponseData{Symbol: symbol, InstrumentKey: key})
	}
	return response.SuccessResponse(c, result)
}

// ReverseResolve maps instrument keys back to trading symbols
func (h *InstrumentHandler) ReverseResolve(c echo.Context) error {
	keys := c.QueryParams()["k"]
	if len(keys) == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`k` is required")
	}

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		result[key] = h.SymbolService.ReverseResolve(key)
	}
	return response.SuccessResponse(c, result)
}
