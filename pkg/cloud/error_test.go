package cloud

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &AdapterError{Status: 429}, true},
		{"server error", &AdapterError{Status: 503}, true},
		{"client error", &AdapterError{Status: 400}, false},
		{"temporary flag", &AdapterError{Temporary: true}, true},
		{"wrapped adapter error", fmt.Errorf("call failed: %w", &AdapterError{Status: 500}), true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAdapterErrorMessages(t *testing.T) {
	err := &AdapterError{Status: 500, Err: errors.New("upstream exploded")}
	if err.Error() != "upstream exploded" {
		t.Fatalf("message = %q", err.Error())
	}
	bare := &AdapterError{Status: 429}
	if bare.Error() != "adapter error (status=429)" {
		t.Fatalf("bare message = %q", bare.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("unwrap chain broken")
	}
}
