package testutil

import (
	"errors"
	"testing"

	apperrors "budgetapp/internal/errors"
)

// AssertAppError fails the test unless err is an *AppError with the given
// code, and returns it for further checks.
func AssertAppError(t testing.TB, err error, code string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertSentinel checks err against a sentinel's code and HTTP status.
// The message may differ: WithMessage rewrites it.
func AssertSentinel(t testing.TB, err error, sentinel *apperrors.AppError) {
	t.Helper()

	appErr := AssertAppError(t, err, sentinel.Code)
	if appErr.StatusCode != sentinel.StatusCode {
		t.Errorf("%s: expected status %d, got %d", sentinel.Code, sentinel.StatusCode, appErr.StatusCode)
	}
}

// AssertNoError fails the test immediately on a non-nil err.
func AssertNoError(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
