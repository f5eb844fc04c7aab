package workflow

import (
	"time"

	"slabdesk/internal/composition"
	"slabdesk/internal/pricing"

	"github.com/google/uuid"
)

// State of the link issuance wizard.
type State string

const (
	StateContentSelection State = "CONTENT_SELECTION"
	StateConfiguration    State = "CONFIGURATION"
	StateSubmitting       State = "SUBMITTING"
	StateSuccess          State = "SUCCESS"
	StateFailed           State = "FAILED"
	StateCancelled        State = "CANCELLED"
)

// Result is what a successful submission hands back to the seller.
type Result struct {
	LinkID   string `json:"linkId"`
	LinkType string `json:"linkType"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
	QRCode   []byte `json:"qrCode,omitempty"`
}

// Failure describes why the last submission did not go through.
type Failure struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Issues  []composition.Issue `json:"issues,omitempty"`
}

// Draft is a seller's link composition plus wizard progress. It is plain
// data so it can be stored between requests.
type Draft struct {
	ID        string              `json:"id"`
	OwnerID   string              `json:"ownerId"`
	State     State               `json:"state"`
	Session   composition.Session `json:"session"`
	Options   Options             `json:"options"`
	Result    *Result             `json:"result,omitempty"`
	Failure   *Failure            `json:"failure,omitempty"`
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

var timeNow = time.Now

// NewDraft starts an empty composition in the content selection step.
func NewDraft(ownerID string, currency pricing.Currency) Draft {
	now := timeNow()
	return Draft{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		State:   StateContentSelection,
		Session: composition.New(currency),
		Options: Options{
			ShowPrice: true,
			Active:    true,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Editable reports whether line items may be changed.
func (d Draft) Editable() bool {
	return d.State == StateContentSelection
}

// configurable covers the configuration step and a failed submission,
// which behaves the same way.
func (d Draft) configurable() bool {
	return d.State == StateConfiguration || d.State == StateFailed
}

func (d Draft) touch() Draft {
	d.Version++
	d.UpdatedAt = timeNow()
	return d
}

// WithSession replaces the composition of an editable draft.
func WithSession(d Draft, s composition.Session) (Draft, error) {
	if !d.Editable() {
		return d, &TransitionError{From: d.State, Action: "edit items"}
	}
	d.Session = s
	return d.touch(), nil
}

// Next moves from content selection to configuration once the selection
// is non-empty and every item fits its batch.
func Next(d Draft) (Draft, error) {
	if d.State != StateContentSelection {
		return d, &TransitionError{From: d.State, Action: "next"}
	}
	if len(d.Session.Items) == 0 {
		return d, ErrEmptySelection
	}
	if issues := composition.Validate(d.Session); len(issues) > 0 {
		return d, &SelectionError{Issues: issues}
	}
	d.State = StateConfiguration
	return d.touch(), nil
}

// Back returns to content selection keeping every selection.
func Back(d Draft) (Draft, error) {
	if !d.configurable() {
		return d, &TransitionError{From: d.State, Action: "back"}
	}
	d.State = StateContentSelection
	d.Failure = nil
	return d.touch(), nil
}

// Cancel discards the draft. Not allowed once submission started.
func Cancel(d Draft) (Draft, error) {
	switch d.State {
	case StateContentSelection, StateConfiguration, StateFailed:
		d.State = StateCancelled
		return d.touch(), nil
	case StateSubmitting:
		return d, ErrSubmissionInFlight
	default:
		return d, &TransitionError{From: d.State, Action: "cancel"}
	}
}
