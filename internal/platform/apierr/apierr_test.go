package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromUnwrapsThroughWrapping(t *testing.T) {
	base := NotFound("user not found")
	wrapped := fmt.Errorf("get user: %w", base)

	ae, ok := From(wrapped)
	if !ok {
		t.Fatalf("expected From to find the api error through wrapping")
	}
	if ae.Status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, ae.Status)
	}
	if ae.Code != CodeNotFound {
		t.Fatalf("expected code %q, got %q", CodeNotFound, ae.Code)
	}
}

func TestFromPlainError(t *testing.T) {
	if _, ok := From(errors.New("boom")); ok {
		t.Fatalf("expected From to reject a plain error")
	}
}

func TestIsCode(t *testing.T) {
	err := Unauthorized(CodeTokenExpired, "token expired")
	if !IsCode(err, CodeTokenExpired) {
		t.Fatalf("expected IsCode to match %q", CodeTokenExpired)
	}
	if IsCode(err, CodeTokenInvalid) {
		t.Fatalf("expected IsCode to reject a different code")
	}
	if IsCode(errors.New("boom"), CodeTokenExpired) {
		t.Fatalf("expected IsCode to reject a plain error")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Validation("field %q is required", "email")
	if got, want := err.Error(), `field "email" is required`; got != want {
		t.Fatalf("expected message %q, got %q", want, got)
	}

	bare := &Error{Status: http.StatusTeapot}
	if bare.Error() == "" {
		t.Fatalf("expected a fallback message for a bare error")
	}
}

func TestConstructorStatuses(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{Validation("v"), http.StatusBadRequest, CodeValidation},
		{NotFound("n"), http.StatusNotFound, CodeNotFound},
		{Duplicate("d"), http.StatusConflict, CodeDuplicateEntry},
		{Unauthorized(CodeTokenRevoked, "r"), http.StatusUnauthorized, CodeTokenRevoked},
		{Forbidden("f"), http.StatusForbidden, CodeForbidden},
		{Internal(errors.New("i")), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		if tc.err.Status != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, tc.err.Status)
		}
		if tc.err.Code != tc.code {
			t.Fatalf("expected code %q, got %q", tc.code, tc.err.Code)
		}
	}
}
