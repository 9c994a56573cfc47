// Package validate checks values obtained from remote sources before they
// reach a file path or a command line.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/rptriage/rptriage/model"
)

var (
	// Characters allowed in any value that ends up in a path or command argument
	allowed = regexp.MustCompile(`^[A-Za-z0-9._:/=-]+$`)

	// Fingerprints are SHA-256 digests in lowercase hex
	fingerprintRegexp = regexp.MustCompile(`^[0-9a-f]{64}$`)

	numericRegexp = regexp.MustCompile(`^[0-9]+$`)
)

// Value checks s against the allow-list and rejects path traversal.
func Value(name, s string) error {
	if s == "" {
		return fmt.Errorf("%w: %s is empty", model.ErrInvalidInput, name)
	}
	if !allowed.MatchString(s) {
		return fmt.Errorf("%w: %s contains disallowed characters: %q", model.ErrInvalidInput, name, s)
	}
	for _, segment := range strings.Split(s, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: %s contains a path traversal sequence: %q", model.ErrInvalidInput, name, s)
		}
	}
	return nil
}

// Optional is Value for fields that may legitimately be empty.
func Optional(name, s string) error {
	if s == "" {
		return nil
	}
	return Value(name, s)
}

// PathSegment validates a value used as a single file name component.
func PathSegment(name, s string) error {
	if err := Value(name, s); err != nil {
		return err
	}
	if strings.Contains(s, "/") || s == "." {
		return fmt.Errorf("%w: %s must be a single path segment: %q", model.ErrInvalidInput, name, s)
	}
	return nil
}

// Numeric validates an identifier made of digits only.
func Numeric(name, s string) error {
	if !numericRegexp.MatchString(s) {
		return fmt.Errorf("%w: %s must be numeric: %q", model.ErrInvalidInput, name, s)
	}
	return nil
}

// Fingerprint validates a fingerprint digest.
func Fingerprint(s string) error {
	if !fingerprintRegexp.MatchString(s) {
		return fmt.Errorf("%w: fingerprint must be 64 lowercase hex characters: %q", model.ErrInvalidInput, s)
	}
	return nil
}

// ShellArg validates s and returns it quoted for a POSIX shell.
func ShellArg(name, s string) (string, error) {
	if err := Value(name, s); err != nil {
		return "", err
	}
	return shellescape.Quote(s), nil
}
