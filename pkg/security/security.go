package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jacksund/simmate-engine/pkg/core"
)

// Limits enforced before rows reach the shared job table.
const (
	// MaxTaskNameLength is the maximum length for task names.
	MaxTaskNameLength = 255

	// MaxParamsSize is the maximum size in bytes for serialized params (1MB).
	MaxParamsSize = 1 << 20

	// MaxCorrections is the hard ceiling for a per-handler correction budget.
	MaxCorrections = 100

	// MaxTagLength is the maximum length for a single routing tag.
	MaxTagLength = 64

	// MaxStoredTextLength is the maximum length for stored error and fix text.
	MaxStoredTextLength = 4096
)

// validName matches alphanumeric plus hyphens, underscores, and dots.
var validName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateTaskName validates a task name.
func ValidateTaskName(name string) error {
	if name == "" {
		return core.ErrInvalidTaskName
	}
	if len(name) > MaxTaskNameLength {
		return core.ErrTaskNameTooLong
	}
	if !validName.MatchString(name) {
		return core.ErrInvalidTaskName
	}
	return nil
}

// ValidateTags validates a routing tag set.
func ValidateTags(tags []string) error {
	for _, t := range tags {
		if t == "" || len(t) > MaxTagLength || !validName.MatchString(t) {
			return core.ErrInvalidTag
		}
	}
	return nil
}

// SanitizeStoredText strips control characters and truncates text bound for
// the database, such as failure reasons and fix descriptions.
func SanitizeStoredText(msg string) string {
	if msg == "" {
		return ""
	}

	var sanitized strings.Builder
	sanitized.Grow(len(msg))
	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()
	if utf8.RuneCountInString(result) > MaxStoredTextLength {
		runes := []rune(result)
		result = string(runes[:MaxStoredTextLength-3]) + "..."
	}
	return result
}

// ClampCorrections keeps a correction budget within [1, MaxCorrections].
func ClampCorrections(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxCorrections {
		return MaxCorrections
	}
	return n
}
