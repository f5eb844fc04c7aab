package workflow

import (
	"context"
	"fmt"
	"strings"

	"slabdesk/internal/backend"
	"slabdesk/internal/composition"
	"slabdesk/internal/domain"
	apierrors "slabdesk/pkg/errors"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrSize = 256

// Failure codes stored on a failed draft.
const (
	FailureStaleSelection = "STALE_SELECTION"
	FailureUpstream       = "UPSTREAM_ERROR"
)

// Gateway is the part of the inventory API a submission needs.
type Gateway interface {
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	CreateSalesLink(ctx context.Context, req backend.CreateSalesLinkRequest) (*backend.SalesLink, error)
}

// Issuer runs the submission step of the wizard.
type Issuer struct {
	gateway       Gateway
	publicBaseURL string
	logger        *zap.Logger
}

func NewIssuer(gateway Gateway, publicBaseURL string, logger *zap.Logger) *Issuer {
	return &Issuer{
		gateway:       gateway,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

// BeginSubmit moves a configured (or failed) draft into Submitting.
func BeginSubmit(d Draft) (Draft, error) {
	switch {
	case d.State == StateSubmitting:
		return d, ErrSubmissionInFlight
	case !d.configurable():
		return d, &TransitionError{From: d.State, Action: "submit"}
	case len(d.Session.Items) == 0:
		return d, ErrEmptySelection
	}
	if err := ValidateOptions(d.Options, timeNow()); err != nil {
		return d, err
	}
	d.State = StateSubmitting
	d.Failure = nil
	return d.touch(), nil
}

// Submit re-checks every selected batch against live availability and, when
// all of them still fit, creates the link. The returned draft is either in
// Success or Failed; a failed draft keeps its composition for correction.
func (i *Issuer) Submit(ctx context.Context, d Draft) (Draft, error) {
	d, err := BeginSubmit(d)
	if err != nil {
		return d, err
	}

	live := make(map[string]domain.Batch, len(d.Session.Items))
	var missing []composition.Issue
	for _, item := range d.Session.Items {
		batch, err := i.gateway.GetBatch(ctx, item.BatchID())
		if err != nil {
			if backend.IsNotFound(err) {
				missing = append(missing, composition.Issue{
					BatchID:   item.BatchID(),
					BatchCode: item.Batch.Code,
					Reason:    "batch no longer exists",
				})
				continue
			}
			i.logger.Warn("Failed to re-check batch before issuing link",
				zap.String("draft_id", d.ID),
				zap.String("batch_id", item.BatchID()),
				zap.Error(err))
			return fail(d, FailureUpstream, err, nil), err
		}
		live[batch.ID] = *batch
	}

	d.Session = composition.Refresh(d.Session, live)
	issues := append(missing, composition.Validate(d.Session)...)
	if len(issues) > 0 {
		stale := &StaleSelectionError{Issues: issues}
		i.logger.Info("Link submission aborted, availability changed",
			zap.String("draft_id", d.ID),
			zap.Int("issues", len(issues)))
		return fail(d, FailureStaleSelection, stale, issues), stale
	}

	req := BuildRequest(d)
	link, err := i.gateway.CreateSalesLink(ctx, req)
	if err != nil {
		code := FailureUpstream
		if apiErr, ok := apierrors.AsAPIError(err); ok {
			code = apiErr.Code
		}
		i.logger.Warn("Failed to create sales link",
			zap.String("draft_id", d.ID),
			zap.String("code", code),
			zap.Error(err))
		return fail(d, code, err, nil), err
	}

	result := &Result{
		LinkID:   link.ID,
		LinkType: req.LinkType,
		Slug:     link.SlugToken,
		URL:      link.FullURL,
	}
	if result.Slug == "" {
		result.Slug = req.SlugToken
	}
	if result.URL == "" {
		result.URL = i.publicBaseURL + "/" + result.Slug
	}
	png, err := qrcode.Encode(result.URL, qrcode.Medium, qrSize)
	if err != nil {
		i.logger.Warn("Failed to render link QR code", zap.String("url", result.URL), zap.Error(err))
	} else {
		result.QRCode = png
	}

	d.State = StateSuccess
	d.Result = result
	i.logger.Info("Sales link issued",
		zap.String("draft_id", d.ID),
		zap.String("link_id", result.LinkID),
		zap.String("link_type", result.LinkType),
		zap.Int("items", len(d.Session.Items)))
	return d.touch(), nil
}

// BuildRequest maps a draft to the creation payload. Amounts are per-area
// unit prices in cents of the display currency.
func BuildRequest(d Draft) backend.CreateSalesLinkRequest {
	req := backend.CreateSalesLinkRequest{
		SlugToken:       d.Options.Slug,
		Title:           d.Options.Title,
		CustomMessage:   d.Options.Message,
		DisplayCurrency: string(d.Session.Currency),
		ShowPrice:       d.Options.ShowPrice,
		IsActive:        d.Options.Active,
		ExpiresAt:       d.Options.ExpiresAt,
	}

	if len(d.Session.Items) == 1 {
		item := d.Session.Items[0]
		req.LinkType = backend.LinkTypeSingleBatch
		req.BatchID = item.BatchID()
		req.Quantity = item.Quantity
		if d.Options.ShowPrice {
			cents := item.UnitPrice.Cents()
			req.DisplayPrice = &cents
		}
		return req
	}

	req.LinkType = backend.LinkTypeMultiBatch
	req.Items = make([]backend.SalesLinkItem, 0, len(d.Session.Items))
	for _, item := range d.Session.Items {
		req.Items = append(req.Items, backend.SalesLinkItem{
			BatchID:         item.BatchID(),
			Quantity:        item.Quantity,
			UnitPriceAmount: item.UnitPrice.Cents(),
		})
	}
	return req
}

func fail(d Draft, code string, err error, issues []composition.Issue) Draft {
	d.State = StateFailed
	d.Failure = &Failure{
		Code:    code,
		Message: fmt.Sprint(err),
		Issues:  issues,
	}
	return d.touch()
}
