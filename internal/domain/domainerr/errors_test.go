package domainerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedKindsMatch(t *testing.T) {
	errExpenseMissing := fmt.Errorf("expense %w", ErrNotFound)
	if !errors.Is(fmt.Errorf("approve: %w", errExpenseMissing), ErrNotFound) {
		t.Fatal("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(errExpenseMissing, ErrForbidden) {
		t.Fatal("did not expect ErrForbidden")
	}
}

func TestAsValidation(t *testing.T) {
	err := fmt.Errorf("create: %w", Invalid("endDate", "must be on or after startDate"))
	v, ok := AsValidation(err)
	if !ok || len(v.Fields) != 1 || v.Fields[0].Field != "endDate" {
		t.Fatalf("unexpected validation error %+v %v", v, ok)
	}
	if _, ok := AsValidation(ErrConflict); ok {
		t.Fatal("plain error is not a validation error")
	}
}
