package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	var err error = &ValidationError{Field: "query", Message: "cannot be empty"}

	if got, want := err.Error(), "validation error on field query: cannot be empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if !errors.Is(WrapError(err, "ask"), ErrInvalidInput) {
		t.Error("wrapped ValidationError should match ErrInvalidInput")
	}
	if errors.Is(err, ErrNotReady) {
		t.Error("ValidationError should not match ErrNotReady")
	}

	var ve *ValidationError
	if !errors.As(WrapError(err, "ask"), &ve) || ve.Field != "query" {
		t.Errorf("errors.As() field = %v", ve)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "load index") != nil {
		t.Error("WrapError(nil) should be nil")
	}

	base := errors.New("manifest.json: no such file")
	got := WrapError(base, "failed to load index from index")
	if got.Error() != "failed to load index from index: manifest.json: no such file" {
		t.Errorf("WrapError() = %q", got)
	}
	if !errors.Is(got, base) {
		t.Error("WrapError() should wrap the original error")
	}
}

func TestNotReadyChain(t *testing.T) {
	// The shape qaService uses for memoized warm-up failures.
	loadErr := errors.New("qdrant collection sec_filings is empty")
	err := fmt.Errorf("%w: %w", ErrNotReady, loadErr)

	if !errors.Is(err, ErrNotReady) || !errors.Is(err, loadErr) {
		t.Errorf("error %v should match both ErrNotReady and the load error", err)
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("not-ready error should not match ErrInvalidInput")
	}
}
