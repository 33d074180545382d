package gcs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/msomdec/field-review/internal/domain"
	"google.golang.org/api/googleapi"
)

func TestClassify_PreconditionFailed(t *testing.T) {
	cause := fmt.Errorf("writer close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed, Message: "conditionNotMet"})
	err := classify("b", "reviews/1/x.jpg", cause)
	if !errors.Is(err, domain.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
}

func TestClassify_OtherErrors(t *testing.T) {
	cause := &googleapi.Error{Code: http.StatusForbidden, Message: "forbidden"}
	err := classify("b", "k", cause)
	if errors.Is(err, domain.ErrObjectExists) {
		t.Fatal("403 must not be reported as existing object")
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected wrapped googleapi error, got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"", "https://storage.googleapis.com/field-review/reviews/3/a%20b.png"},
		{"https://img.example.org/", "https://img.example.org/field-review/reviews/3/a%20b.png"},
	}
	for _, tt := range tests {
		s := NewWithClient(nil, tt.base)
		if got := s.PublicURL("field-review", "reviews/3/a b.png"); got != tt.want {
			t.Errorf("PublicURL(base=%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
