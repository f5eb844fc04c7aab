package handlers

import (
	"context"
	"net/http"

	"slabdesk/internal/outreach"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Sender delivers an issued link to clients.
type Sender interface {
	Send(ctx context.Context, req outreach.Request) (*outreach.Summary, error)
}

type SalesLinkHandler struct {
	logger *zap.Logger
	sender Sender
}

func NewSalesLinkHandler(logger *zap.Logger, sender Sender) *SalesLinkHandler {
	return &SalesLinkHandler{logger: logger, sender: sender}
}

// SendLink handles POST /api/v1/sales-links/:id/send
// @Summary      Send a link to clients
// @Description  Clients without email or phone and repeated ids are skipped. The response counts sent, failed and skipped; it is 200 even when some deliveries failed.
// @Tags         sales-links
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string           false  "Idempotency key"
// @Param        id            path      string           true   "Sales link ID"
// @Param        request       body      SendLinkRequest  true   "Recipients"
// @Success      200           {object}  outreach.Summary
// @Failure      400           {object}  ErrorResponse
// @Failure      502           {object}  ErrorResponse
// @Router       /sales-links/{id}/send [post]
func (h *SalesLinkHandler) SendLink(c *gin.Context) {
	var req SendLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	summary, err := h.sender.Send(requestContext(c), outreach.Request{
		LinkID:     c.Param("id"),
		ClienteIDs: req.ClienteIDs,
		Message:    req.Message,
		UserID:     userID(c),
	})
	if err != nil {
		abort(c, err)
		return
	}

	h.logger.Info("Link delivered",
		zap.String("link_id", c.Param("id")),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	c.JSON(http.StatusOK, summary)
}
