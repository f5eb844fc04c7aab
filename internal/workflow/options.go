package workflow

import (
	"errors"
	"time"

	"slabdesk/internal/composition"
	"slabdesk/internal/pricing"
	"slabdesk/internal/slug"

	"github.com/go-playground/validator/v10"
)

// Options are the display settings collected in the configuration step.
type Options struct {
	Title     string           `json:"title,omitempty" validate:"max=120"`
	Message   string           `json:"message,omitempty" validate:"max=2000"`
	Slug      string           `json:"slug" validate:"required,slug"`
	Currency  pricing.Currency `json:"currency" validate:"omitempty,oneof=BRL USD"`
	ShowPrice bool             `json:"showPrice"`
	Active    bool             `json:"active"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	})
	return v
}

// ValidateOptions checks field rules and that the expiry lies after now.
func ValidateOptions(o Options, now time.Time) error {
	var fields []FieldError
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	if o.ExpiresAt != nil && !o.ExpiresAt.After(now) {
		fields = append(fields, FieldError{Field: "ExpiresAt", Rule: "future"})
	}
	if len(fields) > 0 {
		return &OptionsError{Fields: fields}
	}
	return nil
}

// Configure applies options in the configuration step (or after a failed
// submission). A blank slug is derived from the title. A currency different
// from the session's converts every item first; without a rate the draft is
// left unchanged and pricing.ErrRateUnavailable is returned.
func Configure(d Draft, o Options, rate *pricing.Rate, now time.Time) (Draft, error) {
	if !d.configurable() {
		return d, &TransitionError{From: d.State, Action: "configure"}
	}

	if o.Slug == "" && o.Title != "" {
		o.Slug = slug.WithSuffix(slug.Generate(o.Title))
	}
	if o.Currency == "" {
		o.Currency = d.Session.Currency
	}
	if err := ValidateOptions(o, now); err != nil {
		return d, err
	}

	session, err := composition.ChangeCurrency(d.Session, o.Currency, rate)
	if err != nil {
		return d, err
	}

	d.Session = session
	d.Options = o
	d.State = StateConfiguration
	d.Failure = nil
	return d.touch(), nil
}
