package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harrison/detective/internal/models"
)

func TestInvokeRequiresPrompt(t *testing.T) {
	inv := NewCLIInvoker()
	_, err := inv.Invoke(context.Background(), "", models.TierHaiku)
	if err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	inv := NewCLIInvoker()
	inv.ClaudePath = "/nonexistent/claude-binary"
	inv.sleep = func(time.Duration) {}

	_, err := inv.Invoke(context.Background(), "analyze this", models.TierHaiku)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestInvokeRespectsContextCancellation(t *testing.T) {
	inv := NewCLIInvoker()
	inv.ClaudePath = "/nonexistent/claude-binary"
	inv.sleep = func(time.Duration) {}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Invoke(ctx, "analyze this", models.TierHaiku)
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("request timed out"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("api error 529: Overloaded"), true},
		{errors.New("invalid api key"), false},
		{errors.New("exit status 1"), false},
	}
	for _, tt := range tests {
		if got := isTransient(tt.err); got != tt.want {
			t.Errorf("isTransient(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
