// Package tokenopt compresses raw CI log text to a bounded token budget,
// centered on error-indicator lines, so that prompts stay cheap without
// losing the failure signal.
package tokenopt

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// charsPerToken is the rough heuristic used across the pipeline: one token
// is about four characters of log text.
const charsPerToken = 4

// contextWindow is the number of lines kept on each side of an error line.
const contextWindow = 5

// errorIndicators match lines worth keeping. Compiled once at package init.
var errorIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bERROR\b`),
	regexp.MustCompile(`(?i)\bFAILED\b`),
	regexp.MustCompile(`(?i)\bfatal:`),
	regexp.MustCompile(`(?i)exit code [1-9]`),
	regexp.MustCompile(`(?i)not found`),
	regexp.MustCompile(`(?i)ImportError`),
	regexp.MustCompile(`(?i)ModuleNotFoundError`),
	regexp.MustCompile(`(?i)AssertionError`),
	regexp.MustCompile(`(?i)Exception`),
	regexp.MustCompile(`(?i)Error:`),
	regexp.MustCompile(`(?i)compilation failed`),
	regexp.MustCompile(`(?i)syntax error`),
	regexp.MustCompile(`(?i)cannot find symbol`),
	regexp.MustCompile(`(?i)permission denied`),
	regexp.MustCompile(`(?i)connection refused`),
	regexp.MustCompile(`(?i)timeout`),
	// Malformed version files produced by unquoted UV specifiers.
	regexp.MustCompile(`=\d+\.\d+\.\d+`),
	regexp.MustCompile(`(?i)pytest.*spawn`),
	regexp.MustCompile(`(?i)--extra dev`),
}

var (
	ansiEscape       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	isoTimestamp     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.\d]*\w*\s*`)
	bracketTimestamp = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\]\s*`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// Optimizer compresses log text while preserving error context. It is
// stateless and safe for concurrent use.
type Optimizer struct{}

// New returns a ready Optimizer.
func New() *Optimizer {
	return &Optimizer{}
}

// Compress reduces logs to the error vicinity within maxTokens. The result
// is empty when the input is empty or no line matches any error indicator;
// callers must treat an empty result as "no actionable signal".
func (o *Optimizer) Compress(logs string, maxTokens int) string {
	if logs == "" {
		return ""
	}

	lines := strings.Split(logs, "\n")

	// Collect ±contextWindow lines around every error indicator hit.
	var window []string
	for i, line := range lines {
		if !isErrorLine(line) {
			continue
		}
		start := i - contextWindow
		if start < 0 {
			start = 0
		}
		end := i + contextWindow + 1
		if end > len(lines) {
			end = len(lines)
		}
		window = append(window, lines[start:end]...)
	}

	// Clean and deduplicate, preserving order.
	seen := make(map[string]bool, len(window))
	var cleaned []string
	for _, line := range window {
		c := CleanLine(line)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cleaned = append(cleaned, c)
	}

	compressed := strings.Join(cleaned, "\n")

	// Keep a prefix and suffix half each when over budget. Cut points
	// back off to rune boundaries so multi-byte characters stay intact.
	maxChars := maxTokens * charsPerToken
	if len(compressed) > maxChars {
		half := maxChars / 2
		head := half
		for head > 0 && !utf8.RuneStart(compressed[head]) {
			head--
		}
		tail := len(compressed) - half
		for tail < len(compressed) && !utf8.RuneStart(compressed[tail]) {
			tail++
		}
		compressed = compressed[:head] + "\n...\n" + compressed[tail:]
	}

	return compressed
}

// EstimateTokens returns the rough token count for text.
func (o *Optimizer) EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// BatchByTokens groups items so that no batch exceeds maxBatchTokens. An
// oversized single item still forms its own batch.
func (o *Optimizer) BatchByTokens(items []string, maxBatchTokens int) [][]string {
	var batches [][]string
	var current []string
	tokens := 0

	for _, item := range items {
		itemTokens := o.EstimateTokens(item)
		if tokens+itemTokens > maxBatchTokens && len(current) > 0 {
			batches = append(batches, current)
			current = []string{item}
			tokens = itemTokens
		} else {
			current = append(current, item)
			tokens += itemTokens
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// CleanLine strips ANSI escapes and leading timestamps and collapses
// whitespace runs to single spaces.
func CleanLine(line string) string {
	line = ansiEscape.ReplaceAllString(line, "")
	line = isoTimestamp.ReplaceAllString(line, "")
	line = bracketTimestamp.ReplaceAllString(line, "")
	line = whitespaceRun.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// isErrorLine reports whether a log line matches any error indicator.
func isErrorLine(line string) bool {
	for _, re := range errorIndicators {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
