package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeToHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeArtifactNotFound, http.StatusNotFound},
		{CodeVersionNotFound, http.StatusNotFound},
		{CodeBusy, http.StatusConflict},
		{CodeNoOpRestore, http.StatusConflict},
		{CodeInvalidState, http.StatusUnprocessableEntity},
		{CodeEditFailed, http.StatusBadGateway},
		{CodeStorageError, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := New(c.code, "x").HTTPStatus; got != c.want {
			t.Fatalf("code %s: got %d, want %d", c.code, got, c.want)
		}
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeStorageError, "append failed")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should match cause via errors.Is")
	}
	if !errors.Is(err, ErrStorageError) {
		t.Fatal("wrapped error should match predefined error by code")
	}
	if errors.Is(err, ErrBusy) {
		t.Fatal("errors with different codes must not match")
	}
}

func TestWithDetailDoesNotMutatePredefined(t *testing.T) {
	t.Parallel()

	detailed := ErrBusy.WithDetail("artifact a1")
	if detailed.Detail != "artifact a1" {
		t.Fatalf("unexpected detail: %q", detailed.Detail)
	}
	if ErrBusy.Detail != "" {
		t.Fatal("predefined error was mutated")
	}
	if !errors.Is(detailed, ErrBusy) {
		t.Fatal("detailed copy should still match by code")
	}
}

func TestAsAppError(t *testing.T) {
	t.Parallel()

	plain := fmt.Errorf("boom")
	appErr := AsAppError(plain)
	if appErr.Code != CodeUnknown {
		t.Fatalf("expected CodeUnknown, got %s", appErr.Code)
	}
	if !IsAppError(appErr) {
		t.Fatal("expected AppError")
	}
	if IsAppError(plain) {
		t.Fatal("plain error misidentified as AppError")
	}
}
