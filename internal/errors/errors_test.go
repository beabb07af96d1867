package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestFeedError_Error(t *testing.T) {
	err := &FeedError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "activity not found",
	}

	expected := "NOT_FOUND: activity not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidArgument(t *testing.T) {
	err := NewInvalidArgument("must provide a page number or id_lt")

	if err.Code != ErrInvalidArgument {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidArgument)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "must provide a page number or id_lt" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("feed is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("Post:42")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "Post:42" {
		t.Errorf("Details[identifier] = %v, want Post:42", err.Details["identifier"])
	}
}

func TestNewTransport(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewTransport("get", cause)

	if err.Code != ErrTransport {
		t.Errorf("Code = %q, want %q", err.Code, ErrTransport)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Message != "get failed: connection reset" {
		t.Errorf("Message = %q", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestNewTransport_NilCause(t *testing.T) {
	err := NewTransport("remove_activity", nil)
	if err.Message != "remove_activity failed" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap() should be nil")
	}
}

func TestNewEnrichment(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := NewEnrichment(cause)

	if err.Code != ErrEnrichment {
		t.Errorf("Code = %q, want %q", err.Code, ErrEnrichment)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("boom"))
	if err.Message != "boom" {
		t.Errorf("Message = %q, want boom", err.Message)
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want 'internal error'", err.Message)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewInvalidArgument("x"), ErrInvalidArgument, true},
		{"different code", NewInvalidArgument("x"), ErrNotFound, false},
		{"wrapped", fmt.Errorf("list: %w", NewTransport("get", nil)), ErrTransport, true},
		{"plain error", fmt.Errorf("plain"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewNotFound("a"))
	fErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() ok = false, want true")
	}
	if fErr.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", fErr.Code, ErrNotFound)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As(plain) ok = true, want false")
	}
}
