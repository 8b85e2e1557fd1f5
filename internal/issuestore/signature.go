package issuestore

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/harrison/detective/internal/models"
)

// Normalization strips the volatile parts of error text so that two
// logically identical failures hash to the same signature.
var (
	pathRe       = regexp.MustCompile(`/\S+`)
	lineNumberRe = regexp.MustCompile(`line \d+`)
	timestampRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)
	versionRe    = regexp.MustCompile(`\d+\.\d+\.\d+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// keyPatternRes fingerprint the error family present in the logs. The hit
// set becomes part of the signature, so two failures with the same job but
// different error families dedup separately.
var keyPatternRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ImportError|ModuleNotFoundError`),
	regexp.MustCompile(`(?i)docker.*failed|COPY.*failed`),
	regexp.MustCompile(`=\d+\.\d+\.\d+`),
	regexp.MustCompile(`(?i)pytest.*not (available|found)`),
	regexp.MustCompile(`(?i)submodule.*failed`),
	regexp.MustCompile(`(?i)compilation failed|syntax error`),
	regexp.MustCompile(`(?i)permission denied|access denied`),
	regexp.MustCompile(`(?i)timeout|timed out`),
}

// Signature derives the 16-hex-char dedup key for one failure. It is
// deterministic and idempotent: volatile fields (paths, line numbers,
// timestamps, version numbers) are replaced with placeholders before
// hashing.
func Signature(f models.Failure) string {
	logs := f.CompressedLogs
	if logs == "" {
		logs = f.RawLogs
	}

	elements := []string{
		f.Repository,
		f.JobName,
		"", // error type, unknown before analysis
		NormalizeError(firstLine(logs)),
		keyPatterns(logs),
	}

	sum := sha256.Sum256([]byte(strings.Join(elements, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeError lowercases error text and replaces volatile substrings
// with fixed placeholder tokens. Applying it twice yields the same output.
func NormalizeError(text string) string {
	if text == "" {
		return ""
	}
	normalized := strings.ToLower(text)
	normalized = pathRe.ReplaceAllString(normalized, "<path>")
	normalized = lineNumberRe.ReplaceAllString(normalized, "line <num>")
	normalized = timestampRe.ReplaceAllString(normalized, "<timestamp>")
	normalized = versionRe.ReplaceAllString(normalized, "<version>")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// keyPatterns returns the joined pattern identities found in the logs.
func keyPatterns(logs string) string {
	if logs == "" {
		return ""
	}
	var found []string
	for _, re := range keyPatternRes {
		if re.MatchString(logs) {
			found = append(found, re.String())
		}
	}
	return strings.Join(found, "|")
}

// firstLine returns the first non-empty line of text.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
