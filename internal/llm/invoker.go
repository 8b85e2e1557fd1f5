// Package llm provides utilities for invoking the Claude CLI as the
// analysis backend.
package llm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/harrison/detective/internal/models"
)

// DefaultSystemPrompt is the standard system prompt enforcing JSON-only output.
// This prevents the model from outputting prose, markdown, or code fences
// that break JSON parsing.
const DefaultSystemPrompt = "You are a CI/CD failure analyst. Your ONLY output must be valid JSON matching the provided schema. No markdown, no code fences, no prose, no explanations. Output raw JSON only."

// defaultRetryBackoff is the pause before the single retry of a transient
// invocation failure.
const defaultRetryBackoff = 2 * time.Second

// Invoker sends a prompt to a model tier and returns its raw response.
// The narrow interface keeps the analyzer testable without a live CLI.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, tier models.Tier) (string, error)
}

// CLIInvoker is a reusable client for invoking the Claude CLI.
// It follows the http.Client pattern: create once, use many times.
// Thread-safe for concurrent use.
type CLIInvoker struct {
	// ClaudePath is the path to the claude CLI binary.
	// Defaults to "claude" (found in PATH).
	ClaudePath string

	// Timeout bounds each invocation including the retry.
	// Can be tightened per-request via context.
	Timeout time.Duration

	// SystemPrompt is sent with every invocation.
	// Defaults to DefaultSystemPrompt if empty when using NewCLIInvoker.
	SystemPrompt string

	// Schema is the JSON schema enforced on responses (optional).
	Schema string

	// sleep is overridable for tests.
	sleep func(d time.Duration)
}

// NewCLIInvoker creates a CLIInvoker with default settings.
func NewCLIInvoker() *CLIInvoker {
	return &CLIInvoker{
		ClaudePath:   "claude",
		Timeout:      2 * time.Minute,
		SystemPrompt: DefaultSystemPrompt,
		sleep:        time.Sleep,
	}
}

// Invoke executes one Claude CLI call on the given tier. Transient failures
// (timeouts, connection errors, overload) are retried once after a short
// backoff; everything else fails immediately.
func (inv *CLIInvoker) Invoke(ctx context.Context, prompt string, tier models.Tier) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	ctxToUse := ctx
	var cancel context.CancelFunc
	if inv.Timeout > 0 {
		ctxToUse, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	out, err := inv.invoke(ctxToUse, prompt, tier)
	if err != nil && isTransient(err) && ctxToUse.Err() == nil {
		if inv.sleep != nil {
			inv.sleep(defaultRetryBackoff)
		}
		out, err = inv.invoke(ctxToUse, prompt, tier)
	}
	return out, err
}

// invoke performs the actual CLI call.
// Always includes: --model, --system-prompt, -p, --output-format json,
// plus --json-schema when a schema is configured.
func (inv *CLIInvoker) invoke(ctx context.Context, prompt string, tier models.Tier) (string, error) {
	args := []string{"--model", string(tier)}

	systemPrompt := inv.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	args = append(args, "--system-prompt", systemPrompt)
	args = append(args, "-p", prompt)

	if inv.Schema != "" {
		args = append(args, "--json-schema", inv.Schema)
	}
	args = append(args, "--output-format", "json")

	claudePath := inv.ClaudePath
	if claudePath == "" {
		claudePath = "claude"
	}

	cmd := exec.CommandContext(ctx, claudePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s invocation failed: %w (output: %s)", tier, err, string(output))
	}
	return string(output), nil
}

// isTransient reports whether an invocation error is worth one retry.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "connection refused", "connection reset", "overloaded", "temporarily unavailable", "529"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
