package shared

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/transport/http/api"
)

type ValidationIssue = domainerr.FieldIssue

// Validator collects field issues for checks that struct tags cannot express,
// such as cross-field date order.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	if reason = strings.TrimSpace(reason); reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: reason})
}

// Enum accepts an empty value; pair it with a required tag when needed.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !slices.ContainsFunc(allowed, func(candidate string) bool { return strings.EqualFold(candidate, value) }) {
		v.Add(field, reason)
	}
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	return v.parse(field, raw, ParseDate, "must be a valid date in YYYY-MM-DD format")
}

// Period parses YYYY-MM and returns the first day of that month.
func (v *Validator) Period(field, raw string) (time.Time, bool) {
	return v.parse(field, raw, ParsePeriod, "must be a valid period in YYYY-MM format")
}

func (v *Validator) parse(field, raw string, parse func(string) (time.Time, error), reason string) (time.Time, bool) {
	parsed, err := parse(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, reason)
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() || !end.Before(start) {
		return
	}
	v.Add(startField, "must be on or before "+endField)
	v.Add(endField, "must be on or after "+startField)
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

// Issues returns a sorted copy.
func (v *Validator) Issues() []ValidationIssue {
	if !v.HasIssues() {
		return nil
	}
	return sortIssues(slices.Clone(v.issues))
}

// Reject writes a validation_error response when issues were collected.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.issues)
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	fields := sortIssues(slices.Clone(issues))
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": fields}, requestID)
}

func sortIssues(issues []ValidationIssue) []ValidationIssue {
	slices.SortStableFunc(issues, func(a, b ValidationIssue) int {
		if c := cmp.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return issues
}
