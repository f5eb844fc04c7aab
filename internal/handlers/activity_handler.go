package handlers

import (
	"context"
	"net/http"
	"strconv"

	"slabdesk/internal/activity"
	apierrors "slabdesk/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityReader reads the projections written by the listener.
type ActivityReader interface {
	ListEntries(ctx context.Context, f activity.Filter) ([]activity.Entry, int, error)
	GetBatchSnapshot(ctx context.Context, batchID string) (*activity.BatchSnapshot, error)
	GetLinkStats(ctx context.Context, linkID string) (*activity.LinkStats, error)
}

type ActivityHandler struct {
	logger *zap.Logger
	store  ActivityReader
}

func NewActivityHandler(logger *zap.Logger, store ActivityReader) *ActivityHandler {
	return &ActivityHandler{logger: logger, store: store}
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		abort(c, apierrors.NewInvalidRequest("invalid query parameter", "Parameter: "+name))
		return 0, false
	}
	return n, true
}

// ListActivity handles GET /api/v1/activity
// @Summary      Activity log
// @Description  Newest first. Filters combine with AND.
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        subjectId  query     string  false  "Batch or link ID"
// @Param        eventType  query     string  false  "StatusTransferred, BatchSold, SalesLinkIssued or SalesLinkDelivered"
// @Param        userId     query     string  false  "Acting user"
// @Param        limit      query     int     false  "Page size (default: 50, max: 200)"
// @Param        offset     query     int     false  "Offset"
// @Success      200        {object}  ActivityResponse
// @Failure      400        {object}  ErrorResponse
// @Router       /activity [get]
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultActivityLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	entries, total, err := h.store.ListEntries(c.Request.Context(), activity.Filter{
		SubjectID: c.Query("subjectId"),
		EventType: c.Query("eventType"),
		UserID:    c.Query("userId"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.logger.Error("Failed to list activity", zap.Error(err))
		abort(c, apierrors.NewDatabaseError("list activity", err))
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	c.JSON(http.StatusOK, ActivityResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// GetBatchSnapshot handles GET /api/v1/activity/batches/:id
// @Summary      Last confirmed buckets of a batch
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  activity.BatchSnapshot
// @Failure      404  {object}  ErrorResponse
// @Router       /activity/batches/{id} [get]
func (h *ActivityHandler) GetBatchSnapshot(c *gin.Context) {
	snap, err := h.store.GetBatchSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetLinkStats handles GET /api/v1/activity/links/:id
// @Summary      Issuance and delivery counts of a link
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sales link ID"
// @Success      200  {object}  activity.LinkStats
// @Failure      404  {object}  ErrorResponse
// @Router       /activity/links/{id} [get]
func (h *ActivityHandler) GetLinkStats(c *gin.Context) {
	stats, err := h.store.GetLinkStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
