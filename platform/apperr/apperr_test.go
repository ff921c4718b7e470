package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRetryable_PermanentKinds(t *testing.T) {
	permanent := []*Error{
		Validation("bad input"),
		BadRequest("malformed"),
		NotFound("missing"),
		Forbidden("wrong tenant"),
		Conflict("duplicate"),
	}
	for _, err := range permanent {
		if err.Retryable() {
			t.Fatalf("kind %v must not be retryable", err.Kind)
		}
	}

	transient := []*Error{
		Timeout("budget exceeded"),
		Unavailable("lock contention"),
		Internal("unexpected"),
	}
	for _, err := range transient {
		if !err.Retryable() {
			t.Fatalf("kind %v must be retryable", err.Kind)
		}
	}
}

func TestIsRetryable_UntypedErrorsAreTransient(t *testing.T) {
	if !IsRetryable(errors.New("connection reset")) {
		t.Fatalf("untyped errors must default to retryable")
	}
}

func TestIsRetryable_Wrapped(t *testing.T) {
	err := fmt.Errorf("recompute failed: %w", Forbidden("wrong tenant"))
	if IsRetryable(err) {
		t.Fatalf("a wrapped forbidden error must stay permanent")
	}
	if !Is(err, KindForbidden) {
		t.Fatalf("kind must survive wrapping")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Forbidden("x"), http.StatusForbidden},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Conflict("x"), http.StatusConflict},
		{Timeout("x"), http.StatusGatewayTimeout},
		{Unavailable("x"), http.StatusServiceUnavailable},
		{Internal("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("kind %v: status %d, want %d", tc.err.Kind, got, tc.want)
		}
	}
}
