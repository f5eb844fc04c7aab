package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"slabdesk/internal/backend"
	"slabdesk/internal/composition"
	"slabdesk/internal/domain"
	"slabdesk/internal/events"
	"slabdesk/internal/inflight"
	"slabdesk/internal/pricing"
	"slabdesk/internal/repository"
	"slabdesk/internal/slug"
	"slabdesk/internal/workflow"
	apierrors "slabdesk/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BatchSource loads live batches.
type BatchSource interface {
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
}

// RateSource provides the current USD-BRL rate.
type RateSource interface {
	Current(ctx context.Context) (*pricing.Rate, error)
}

// SlugChecker runs debounced slug availability checks per draft.
type SlugChecker interface {
	Request(key, slug string) slug.Result
	Latest(key string) (slug.Result, bool)
	Forget(key string)
}

// Submitter issues the link of a configured draft.
type Submitter interface {
	Submit(ctx context.Context, d workflow.Draft) (workflow.Draft, error)
}

// LinkMetrics records link issuance.
type LinkMetrics interface {
	RecordLinkIssued(linkType string, success bool)
}

type CompositionHandler struct {
	logger    *zap.Logger
	drafts    repository.DraftRepository
	batches   BatchSource
	rates     RateSource
	slugs     SlugChecker
	issuer    Submitter
	guard     *inflight.Guard
	publisher events.EventPublisher
	metrics   LinkMetrics
}

func NewCompositionHandler(
	logger *zap.Logger,
	drafts repository.DraftRepository,
	batches BatchSource,
	rates RateSource,
	slugs SlugChecker,
	issuer Submitter,
	publisher events.EventPublisher,
	metrics LinkMetrics,
) *CompositionHandler {
	return &CompositionHandler{
		logger:    logger,
		drafts:    drafts,
		batches:   batches,
		rates:     rates,
		slugs:     slugs,
		issuer:    issuer,
		guard:     inflight.NewGuard(),
		publisher: publisher,
		metrics:   metrics,
	}
}

func totalsOf(d workflow.Draft) TotalsResponse {
	totals := composition.ComputeTotals(d.Session)
	issues := composition.Validate(d.Session)
	if issues == nil {
		issues = []composition.Issue{}
	}
	return TotalsResponse{
		TotalPieces: totals.TotalPieces,
		TotalArea:   totals.TotalArea.String(),
		TotalValue:  totals.TotalValue.Amount.String(),
		Currency:    string(totals.TotalValue.Currency),
		Formatted:   totals.TotalValue.Format(),
		Issues:      issues,
	}
}

func draftResponse(d workflow.Draft, warnings ...string) DraftResponse {
	return DraftResponse{Draft: d, Totals: totalsOf(d), Warnings: warnings}
}

func (h *CompositionHandler) load(c *gin.Context) (workflow.Draft, bool) {
	d, err := h.drafts.FindByID(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrDraftNotFound) {
			abort(c, apierrors.NewDraftNotFound(c.Param("id")))
			return d, false
		}
		abort(c, err)
		return d, false
	}
	return d, true
}

// loadIdle loads a draft for a change that must not race a running submit.
func (h *CompositionHandler) loadIdle(c *gin.Context) (workflow.Draft, bool) {
	if h.guard.Busy(c.Param("id")) {
		abort(c, workflow.ErrSubmissionInFlight)
		return workflow.Draft{}, false
	}
	return h.load(c)
}

// save stores d unless the stored draft moved past base since it was loaded.
func (h *CompositionHandler) save(c *gin.Context, status int, base int, d workflow.Draft, warnings ...string) {
	if err := h.drafts.Save(c.Request.Context(), d, base); err != nil {
		h.logger.Error("Failed to save draft", zap.String("draft_id", d.ID), zap.Error(err))
		abort(c, err)
		return
	}
	c.JSON(status, draftResponse(d, warnings...))
}

// rateFor returns the current rate when converting between from and to.
// A failed lookup yields a nil rate; callers decide whether that blocks.
func (h *CompositionHandler) rateFor(ctx context.Context, from, to pricing.Currency) *pricing.Rate {
	if from == to || h.rates == nil {
		return nil
	}
	rate, err := h.rates.Current(ctx)
	if err != nil {
		h.logger.Warn("Exchange quote unavailable", zap.Error(err))
		return nil
	}
	return rate
}

// CreateComposition handles POST /api/v1/compositions
// @Summary      Start a link composition
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateCompositionRequest  false  "Currency (default BRL)"
// @Success      201      {object}  DraftResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /compositions [post]
func (h *CompositionHandler) CreateComposition(c *gin.Context) {
	var req CreateCompositionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	currency := pricing.BRL
	if req.Currency != "" {
		parsed, err := pricing.ParseCurrency(req.Currency)
		if err != nil {
			abort(c, apierrors.NewValidationError("invalid currency", "currency"))
			return
		}
		currency = parsed
	}

	d := workflow.NewDraft(userID(c), currency)
	h.logger.Info("Composition started", zap.String("draft_id", d.ID), zap.String("owner_id", d.OwnerID))
	h.save(c, http.StatusCreated, 0, d)
}

// GetComposition handles GET /api/v1/compositions/:id
// @Summary      Get a composition
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  DraftResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /compositions/{id} [get]
func (h *CompositionHandler) GetComposition(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, draftResponse(d))
}

// CancelComposition handles DELETE /api/v1/compositions/:id
// @Summary      Cancel a composition
// @Description  Not allowed while a submission is running.
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  DraftResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /compositions/{id} [delete]
func (h *CompositionHandler) CancelComposition(c *gin.Context) {
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	d, err := workflow.Cancel(d)
	if err != nil {
		abort(c, err)
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), d.OwnerID, d.ID); err != nil {
		abort(c, err)
		return
	}
	h.slugs.Forget(d.ID)
	c.JSON(http.StatusOK, draftResponse(d))
}

// AddItem handles POST /api/v1/compositions/:id/items
// @Summary      Add a batch
// @Description  Seeds quantity 1 and the batch base price converted to the draft currency. Without a quote the price is kept and a warning is returned.
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string          true  "Draft ID"
// @Param        request  body      AddItemRequest  true  "Batch"
// @Success      200      {object}  DraftResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /compositions/{id}/items [post]
func (h *CompositionHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version
	if !d.Editable() {
		abort(c, &workflow.TransitionError{From: d.State, Action: "edit items"})
		return
	}

	ctx := requestContext(c)
	batch, err := h.batches.GetBatch(ctx, req.BatchID)
	if err != nil {
		if backend.IsNotFound(err) {
			abort(c, apierrors.NewBatchNotFound(req.BatchID))
			return
		}
		abort(c, err)
		return
	}

	rate := h.rateFor(ctx, batch.BasePrice.Currency, d.Session.Currency)
	session, err := composition.AddItem(d.Session, *batch, rate)
	var warnings []string
	switch {
	case errors.Is(err, pricing.ErrRateUnavailable):
		warnings = append(warnings, err.Error())
	case err != nil:
		abort(c, err)
		return
	}

	d, err = workflow.WithSession(d, session)
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d, warnings...)
}

// UpdateItem handles PATCH /api/v1/compositions/:id/items/:batchId
// @Summary      Change quantity or unit price
// @Description  Quantity is clamped to [1, available]; unit price to zero or more.
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Draft ID"
// @Param        batchId  path      string             true  "Batch ID"
// @Param        request  body      UpdateItemRequest  true  "Changes"
// @Success      200      {object}  DraftResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /compositions/{id}/items/{batchId} [patch]
func (h *CompositionHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Quantity == nil && req.UnitPrice == nil {
		abort(c, apierrors.NewInvalidRequest("nothing to update", "Expected: quantity or unitPrice"))
		return
	}
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version

	batchID := c.Param("batchId")
	session := d.Session
	var err error
	if req.Quantity != nil {
		if session, err = composition.SetQuantity(session, batchID, *req.Quantity); err != nil {
			abort(c, err)
			return
		}
	}
	if req.UnitPrice != nil {
		if session, err = composition.SetUnitPrice(session, batchID, *req.UnitPrice); err != nil {
			abort(c, err)
			return
		}
	}

	d, err = workflow.WithSession(d, session)
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d)
}

// RemoveItem handles DELETE /api/v1/compositions/:id/items/:batchId
// @Summary      Remove a batch
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Draft ID"
// @Param        batchId  path      string  true  "Batch ID"
// @Success      200      {object}  DraftResponse
// @Router       /compositions/{id}/items/{batchId} [delete]
func (h *CompositionHandler) RemoveItem(c *gin.Context) {
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version
	d, err := workflow.WithSession(d, composition.RemoveItem(d.Session, c.Param("batchId")))
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d)
}

// MoveItem handles POST /api/v1/compositions/:id/items/move
// @Summary      Reorder items
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true  "Draft ID"
// @Param        request  body      MoveItemRequest  true  "Indexes"
// @Success      200      {object}  DraftResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /compositions/{id}/items/move [post]
func (h *CompositionHandler) MoveItem(c *gin.Context) {
	var req MoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version
	session, err := composition.MoveItem(d.Session, *req.From, *req.To)
	if err != nil {
		abort(c, err)
		return
	}
	d, err = workflow.WithSession(d, session)
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d)
}

// ChangeCurrency handles PUT /api/v1/compositions/:id/currency
// @Summary      Switch currency
// @Description  Converts every unit price. Without a quote nothing changes.
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Draft ID"
// @Param        request  body      ChangeCurrencyRequest  true  "Currency"
// @Success      200      {object}  DraftResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /compositions/{id}/currency [put]
func (h *CompositionHandler) ChangeCurrency(c *gin.Context) {
	var req ChangeCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	to, err := pricing.ParseCurrency(req.Currency)
	if err != nil {
		abort(c, apierrors.NewValidationError("invalid currency", "currency"))
		return
	}
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version
	if !d.Editable() {
		abort(c, &workflow.TransitionError{From: d.State, Action: "change currency"})
		return
	}

	rate := h.rateFor(c.Request.Context(), d.Session.Currency, to)
	session, err := composition.ChangeCurrency(d.Session, to, rate)
	if err != nil {
		abort(c, err)
		return
	}
	d, err = workflow.WithSession(d, session)
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d)
}

// GetTotals handles GET /api/v1/compositions/:id/totals
// @Summary      Totals and blocking issues
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  TotalsResponse
// @Router       /compositions/{id}/totals [get]
func (h *CompositionHandler) GetTotals(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, totalsOf(d))
}

// Next handles POST /api/v1/compositions/:id/next
// @Summary      Continue to configuration
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  DraftResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /compositions/{id}/next [post]
func (h *CompositionHandler) Next(c *gin.Context) {
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version
	d, err := workflow.Next(d)
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d)
}

// Back handles POST /api/v1/compositions/:id/back
// @Summary      Return to content selection
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  DraftResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /compositions/{id}/back [post]
func (h *CompositionHandler) Back(c *gin.Context) {
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version
	d, err := workflow.Back(d)
	if err != nil {
		abort(c, err)
		return
	}
	h.save(c, http.StatusOK, base, d)
}

// Configure handles PUT /api/v1/compositions/:id/options
// @Summary      Set link options
// @Description  A blank slug is generated from the title. A different currency converts all prices first.
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string            true  "Draft ID"
// @Param        request  body      workflow.Options  true  "Options"
// @Success      200      {object}  DraftResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /compositions/{id}/options [put]
func (h *CompositionHandler) Configure(c *gin.Context) {
	var opts workflow.Options
	if err := c.ShouldBindJSON(&opts); err != nil {
		bindError(c, err)
		return
	}
	d, ok := h.loadIdle(c)
	if !ok {
		return
	}
	base := d.Version

	var rate *pricing.Rate
	if opts.Currency != "" {
		rate = h.rateFor(c.Request.Context(), d.Session.Currency, opts.Currency)
	}
	d, err := workflow.Configure(d, opts, rate, time.Now())
	if err != nil {
		abort(c, err)
		return
	}
	if d.Options.Slug != "" {
		h.slugs.Request(d.ID, d.Options.Slug)
	}
	h.save(c, http.StatusOK, base, d)
}

// CheckSlug handles PUT /api/v1/compositions/:id/slug
// @Summary      Request a slug availability check
// @Description  Debounced. A newer request for the same draft supersedes the pending one.
// @Tags         compositions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string       true  "Draft ID"
// @Param        request  body      SlugRequest  true  "Slug"
// @Success      202      {object}  slug.Result
// @Router       /compositions/{id}/slug [put]
func (h *CompositionHandler) CheckSlug(c *gin.Context) {
	var req SlugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, h.slugs.Request(d.ID, req.Slug))
}

// GetSlugStatus handles GET /api/v1/compositions/:id/slug
// @Summary      Latest slug availability
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  slug.Result
// @Failure      404  {object}  ErrorResponse
// @Router       /compositions/{id}/slug [get]
func (h *CompositionHandler) GetSlugStatus(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	res, found := h.slugs.Latest(d.ID)
	if !found {
		abort(c, apierrors.NewStandardError("ResourceNotFound", "no slug check requested", "Draft ID: "+d.ID))
		return
	}
	c.JSON(http.StatusOK, res)
}

// SubmitComposition handles POST /api/v1/compositions/:id/submit
// @Summary      Issue the sales link
// @Description  Re-checks live availability of every batch first. A shortfall aborts with the offending batches and keeps the draft for correction.
// @Tags         compositions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Draft ID"
// @Success      201  {object}  DraftResponse
// @Failure      409  {object}  SubmitFailureResponse
// @Failure      502  {object}  SubmitFailureResponse
// @Router       /compositions/{id}/submit [post]
func (h *CompositionHandler) SubmitComposition(c *gin.Context) {
	release, err := h.guard.Acquire(c.Param("id"))
	if err != nil {
		abort(c, workflow.ErrSubmissionInFlight)
		return
	}
	defer release()

	d, ok := h.load(c)
	if !ok {
		return
	}
	before := d.Version

	result, err := h.issuer.Submit(requestContext(c), d)
	if err != nil {
		if result.Version == before {
			// rejected before anything was sent
			abort(c, err)
			return
		}
		h.recordIssued(workflow.BuildRequest(result).LinkType, false)
		if saveErr := h.drafts.Save(c.Request.Context(), result, before); saveErr != nil {
			h.logger.Error("Failed to save failed draft", zap.String("draft_id", result.ID), zap.Error(saveErr))
		}
		stdErr := h.standardError(c, err)
		c.JSON(stdErr.HTTPStatus(), SubmitFailureResponse{
			Error:   stdErr.Code,
			Message: stdErr.Message,
			Details: stdErr.Details,
			Draft:   draftResponse(result),
		})
		return
	}

	h.recordIssued(result.Result.LinkType, true)
	h.slugs.Forget(result.ID)
	h.publishIssued(c.Request.Context(), result)

	// The link exists upstream now, so the issued draft wins over any edit
	// that slipped in between load and save.
	err = h.drafts.Save(c.Request.Context(), result, before)
	if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrDraftNotFound) {
		h.logger.Warn("Draft changed during submit, storing issued link",
			zap.String("draft_id", result.ID), zap.String("link_id", result.Result.LinkID))
		err = h.drafts.Save(c.Request.Context(), result, repository.AnyVersion)
	}
	if err != nil {
		h.logger.Error("Failed to save issued draft", zap.String("draft_id", result.ID), zap.Error(err))
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, draftResponse(result))
}

func (h *CompositionHandler) standardError(c *gin.Context, err error) *apierrors.StandardError {
	if mapped, ok := toStandardError(err).(*apierrors.StandardError); ok {
		return mapped
	}
	if apiErr, ok := apierrors.AsAPIError(err); ok {
		return apierrors.FromAPIError(apiErr, c.GetHeader("Accept-Language"))
	}
	return apierrors.NewStandardError("UpstreamError", "failed to issue link", err.Error())
}

func (h *CompositionHandler) recordIssued(linkType string, success bool) {
	if h.metrics != nil {
		h.metrics.RecordLinkIssued(linkType, success)
	}
}

func (h *CompositionHandler) publishIssued(ctx context.Context, d workflow.Draft) {
	if h.publisher == nil {
		return
	}
	totals := composition.ComputeTotals(d.Session)
	batchIDs := make([]string, 0, len(d.Session.Items))
	for _, item := range d.Session.Items {
		batchIDs = append(batchIDs, item.BatchID())
	}
	event := events.SalesLinkIssuedEvent{
		LinkID:      d.Result.LinkID,
		LinkType:    d.Result.LinkType,
		Slug:        d.Result.Slug,
		URL:         d.Result.URL,
		DraftID:     d.ID,
		BatchIDs:    batchIDs,
		TotalPieces: totals.TotalPieces,
		TotalValue:  totals.TotalValue.Cents(),
		Currency:    string(totals.TotalValue.Currency),
		UserID:      d.OwnerID,
		OccurredAt:  time.Now().UTC(),
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Error("Failed to publish link issued event", zap.String("link_id", event.LinkID), zap.Error(err))
	}
}
