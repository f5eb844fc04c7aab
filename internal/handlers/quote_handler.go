package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QuoteHandler struct {
	logger *zap.Logger
	rates  RateSource
}

func NewQuoteHandler(logger *zap.Logger, rates RateSource) *QuoteHandler {
	return &QuoteHandler{logger: logger, rates: rates}
}

// GetUSDBRL handles GET /api/v1/quotes/usd-brl
// @Summary      Current USD-BRL quote
// @Description  Served from cache while fresh; falls back to the last known quote when the provider is down.
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  QuoteResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /quotes/usd-brl [get]
func (h *QuoteHandler) GetUSDBRL(c *gin.Context) {
	rate, err := h.rates.Current(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, QuoteResponse{
		Pair:      "USD-BRL",
		Bid:       rate.BRLPerUSD.String(),
		FetchedAt: rate.FetchedAt,
	})
}
