package workflow

import (
	"errors"
	"fmt"
	"strings"

	"slabdesk/internal/composition"
)

var (
	ErrEmptySelection     = errors.New("select at least one batch")
	ErrSubmissionInFlight = errors.New("a submission for this draft is already in progress")
)

// TransitionError is returned for an action the current state does not allow.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Action, e.From)
}

// SelectionError lists items that block moving forward.
type SelectionError struct {
	Issues []composition.Issue
}

func (e *SelectionError) Error() string {
	return "selection has invalid items: " + describe(e.Issues)
}

// StaleSelectionError is returned when live availability no longer covers
// the selection at submit time. No link was created.
type StaleSelectionError struct {
	Issues []composition.Issue
}

func (e *StaleSelectionError) Error() string {
	return "availability changed for " + describe(e.Issues)
}

// FieldError is one failed option field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// OptionsError lists invalid configuration fields.
type OptionsError struct {
	Fields []FieldError
}

func (e *OptionsError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "invalid options: " + strings.Join(parts, ", ")
}

func describe(issues []composition.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		name := issue.BatchCode
		if name == "" {
			name = issue.BatchID
		}
		parts = append(parts, name+": "+issue.Reason)
	}
	return strings.Join(parts, "; ")
}
