package fingerprint

// normalize.go strips volatile substrings from tracebacks so that recurring
// failures produce the same fingerprint.

import (
	"regexp"
	"strings"
)

// TailLines is the number of trailing non-empty lines kept from a traceback.
const TailLines = 5

// Placeholders substituted for volatile tokens.
const (
	EmptyPlaceholder     = "<EMPTY>"
	TimestampPlaceholder = "<TS>"
	UUIDPlaceholder      = "<UUID>"
	SuffixPlaceholder    = "-<ID>"
)

var (
	timestampRegexp = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	uuidRegexp      = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	// generated resource name suffixes, e.g. rook-ceph-osd-0-7f9abc2; see replaceSuffix
	suffixRegexp = regexp.MustCompile(`-[a-z0-9]{5,10}\b`)
)

// Normalize returns the stable form of a raw traceback: the last TailLines
// non-empty lines with timestamps, UUIDs and generated suffixes replaced by
// placeholders. Normalize is idempotent and never fails; empty input yields
// EmptyPlaceholder.
func Normalize(raw string) string {
	lines := tail(raw, TailLines)
	if len(lines) == 0 {
		return EmptyPlaceholder
	}

	// Timestamps and UUIDs go first, their hyphenated digit groups would
	// otherwise be eaten by the suffix pattern.
	for i, line := range lines {
		line = timestampRegexp.ReplaceAllLiteralString(line, TimestampPlaceholder)
		line = uuidRegexp.ReplaceAllLiteralString(line, UUIDPlaceholder)
		line = suffixRegexp.ReplaceAllStringFunc(line, replaceSuffix)
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

// replaceSuffix replaces a suffix only when it carries a digit, so plain words
// such as -storage or -system survive.
func replaceSuffix(match string) string {
	if strings.ContainsAny(match, "0123456789") {
		return SuffixPlaceholder
	}
	return match
}

// tail returns up to n trimmed non-empty lines from the end of s.
func tail(s string, n int) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
