package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"slabdesk/internal/activity"
	"slabdesk/internal/backend"
	"slabdesk/internal/composition"
	"slabdesk/internal/domain"
	"slabdesk/internal/inflight"
	"slabdesk/internal/outreach"
	"slabdesk/internal/pricing"
	"slabdesk/internal/quote"
	"slabdesk/internal/repository"
	"slabdesk/internal/workflow"
	apierrors "slabdesk/pkg/errors"
	"slabdesk/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// abort attaches the mapped error for middleware.ErrorHandler to render.
func abort(c *gin.Context, err error) {
	_ = c.Error(toStandardError(err))
	c.Abort()
}

// toStandardError maps package errors to response bodies. Upstream API
// errors are left as they are; the error handler localizes them.
func toStandardError(err error) error {
	var (
		stdErr        *apierrors.StandardError
		insufficient  *domain.InsufficientQuantityError
		belowFloor    *domain.PriceBelowFloorError
		transition    *workflow.TransitionError
		selection     *workflow.SelectionError
		stale         *workflow.StaleSelectionError
		options       *workflow.OptionsError
		validationErr validator.ValidationErrors
	)

	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.As(err, &insufficient):
		return apierrors.NewInsufficientQuantity(insufficient.Available, insufficient.Requested)
	case errors.As(err, &belowFloor):
		return apierrors.NewPriceBelowFloor(belowFloor.Floor, belowFloor.Price)
	case errors.Is(err, domain.ErrSameStatus), errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUnknownStatus), errors.Is(err, domain.ErrSoldRequiresSaleInput):
		return apierrors.NewStandardError("InvalidTransfer", err.Error(), "")
	case errors.Is(err, domain.ErrSellerRequired), errors.Is(err, domain.ErrAmbiguousBuyer),
		errors.Is(err, domain.ErrSaleCurrencyMismatch):
		return apierrors.NewStandardError("ValidationError", err.Error(), "")
	case errors.As(err, &validationErr):
		return apierrors.NewStandardError("ValidationError", "invalid request fields", describeValidation(validationErr))
	case errors.Is(err, composition.ErrDuplicateItem):
		return apierrors.NewStandardError("DuplicateItem", err.Error(), "")
	case errors.Is(err, composition.ErrItemNotFound):
		return apierrors.NewStandardError("ResourceNotFound", err.Error(), "")
	case errors.Is(err, composition.ErrIndexOutOfRange), errors.Is(err, workflow.ErrEmptySelection),
		errors.Is(err, outreach.ErrNoRecipients):
		return apierrors.NewInvalidRequest(err.Error(), "")
	case errors.As(err, &transition):
		return apierrors.NewInvalidState(err.Error(), string(transition.From))
	case errors.As(err, &selection):
		return apierrors.NewStandardError("InvalidRequest", "selection has invalid items", err.Error())
	case errors.As(err, &stale):
		return apierrors.NewStandardError("StaleSelection", "availability changed, review the selection", err.Error())
	case errors.As(err, &options):
		return apierrors.NewStandardError("ValidationError", "invalid link options", err.Error())
	case errors.Is(err, workflow.ErrSubmissionInFlight), errors.Is(err, inflight.ErrBusy):
		return apierrors.NewStandardError("SubmissionInFlight", workflow.ErrSubmissionInFlight.Error(), "")
	case errors.Is(err, repository.ErrDraftNotFound):
		return apierrors.NewStandardError("DraftNotFound", "composition draft not found", "")
	case errors.Is(err, repository.ErrVersionConflict):
		return apierrors.NewStandardError("Conflict", err.Error(), "")
	case errors.Is(err, pricing.ErrRateUnavailable), errors.Is(err, quote.ErrQuoteUnavailable):
		return apierrors.NewStandardError("QuoteUnavailable", "exchange quote unavailable", err.Error())
	case errors.Is(err, backend.ErrUnavailable):
		return apierrors.NewStandardError("ServiceUnavailable", "inventory API unavailable", "")
	case errors.Is(err, activity.ErrLinkNotFound), errors.Is(err, activity.ErrBatchNotFound):
		return apierrors.NewStandardError("ResourceNotFound", err.Error(), "")
	case errors.Is(err, context.DeadlineExceeded):
		return apierrors.NewStandardError("ServiceUnavailable", "upstream timed out", "")
	}
	return err
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "Fields: " + strings.Join(parts, ", ")
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		abort(c, validationErr)
		return
	}
	abort(c, apierrors.NewInvalidRequest("invalid request body", err.Error()))
}

// requestContext carries the caller's token and request id to the
// inventory API.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if token := c.GetString(middleware.AccessTokenContextKey); token != "" {
		ctx = backend.WithToken(ctx, token)
	}
	return ctx
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDContextKey)
}
