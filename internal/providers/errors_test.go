package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":               ErrorQuota,
		"429 too many requests":            ErrorRate,
		"rate limit reached":               ErrorRate,
		"maximum context length exceeded":  ErrorContext,
		"prompt too long":                  ErrorContext,
		"timeout":                          ErrorTransient,
		"openai generate: status 503: bad": ErrorTransient,
		"bad request":                      ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if got := ClassifyError(fmt.Errorf("embed: %w", context.DeadlineExceeded)); got != ErrorTransient {
		t.Fatalf("deadline: got %s", got)
	}
	if got := ClassifyError(fmt.Errorf("chat: %w", context.Canceled)); got != ErrorCanceled {
		t.Fatalf("canceled: got %s", got)
	}
	if got := ClassifyError(nil); got != "" {
		t.Fatalf("nil: got %s", got)
	}
}
