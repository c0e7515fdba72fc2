// Package privacy controls how much raw captured content is carried in
// event payloads.
//
// Three modes are supported:
//   - METADATA_ONLY: no content leaves the watcher, only sizes and hashes.
//   - REDACTED: a short truncated preview, with sensitive content masked.
//   - FULL: a capped preview; sensitive content is still forced to the
//     redacted form regardless of mode.
package privacy

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects the payload content policy.
type Mode int

const (
	// MetadataOnly carries no raw content in payloads.
	MetadataOnly Mode = iota
	// Redacted carries a short truncated preview with sensitive masking.
	Redacted
	// Full carries a capped preview; sensitive content is still redacted.
	Full
)

// Mode names as they appear in configuration.
const (
	nameMetadataOnly = "METADATA_ONLY"
	nameRedacted     = "REDACTED"
	nameFull         = "FULL"
)

// RedactedPlaceholder replaces previews that still match a sensitive
// pattern after truncation.
const RedactedPlaceholder = "[REDACTED]"

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case MetadataOnly:
		return nameMetadataOnly
	case Redacted:
		return nameRedacted
	case Full:
		return nameFull
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a configuration mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case nameMetadataOnly:
		return MetadataOnly, nil
	case nameRedacted:
		return Redacted, nil
	case nameFull:
		return Full, nil
	default:
		return MetadataOnly, fmt.Errorf("privacy: unknown mode %q", s)
	}
}

// Valid reports whether the mode is one of the defined values.
func (m Mode) Valid() bool {
	return m == MetadataOnly || m == Redacted || m == Full
}

// Patterns for content that must never appear in a payload. Rule-based
// rather than exhaustive: SSNs, payment card numbers, and credential-style
// key/value pairs cover the common leak shapes.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                                // SSN
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),                               // payment card
	regexp.MustCompile(`(?i)(password|secret|api[_-]?key|token)\s*[:=]\s*\S+`), // credentials
	regexp.MustCompile(`(?i)-----BEGIN [A-Z ]*PRIVATE KEY-----`),               // key material
}

// IsSensitive reports whether the content matches a sensitive pattern.
func IsSensitive(content string) bool {
	for _, re := range sensitivePatterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// Policy applies a privacy mode to captured content.
type Policy struct {
	Mode Mode

	// PreviewLen caps previews in FULL mode.
	PreviewLen int

	// ShortPreviewLen caps previews in REDACTED mode.
	ShortPreviewLen int
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{Mode: MetadataOnly, PreviewLen: 256, ShortPreviewLen: 32}
}

// Preview derives the payload preview for captured content and reports
// whether the content was classified as sensitive.
//
// Sensitive detection runs on the full content. If the truncated preview
// itself still matches a sensitive pattern, it is replaced outright with
// the redaction placeholder.
func (p Policy) Preview(content string) (preview string, sensitive bool) {
	sensitive = IsSensitive(content)

	switch p.Mode {
	case MetadataOnly:
		return "", sensitive
	case Redacted:
		preview = truncate(content, p.shortLen())
	case Full:
		if sensitive {
			preview = truncate(content, p.shortLen())
		} else {
			preview = truncate(content, p.fullLen())
		}
	default:
		return "", sensitive
	}

	if IsSensitive(preview) {
		preview = RedactedPlaceholder
	}
	return preview, sensitive
}

func (p Policy) shortLen() int {
	if p.ShortPreviewLen > 0 {
		return p.ShortPreviewLen
	}
	return 32
}

func (p Policy) fullLen() int {
	if p.PreviewLen > 0 {
		return p.PreviewLen
	}
	return 256
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !isRuneStart(s[len(cut)]) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
