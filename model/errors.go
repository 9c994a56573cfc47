package model

import "errors"

// Error kinds shared by all packages. Wrap them with fmt.Errorf("...: %w", ...)
// and test with errors.Is.
var (
	// ErrInvalidInput is a malformed locator or a value that failed allow-list validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnreachable is a crawl root or API endpoint that could not be reached.
	ErrUnreachable = errors.New("unreachable")
	// ErrMalformedRecord is a remote or cached record missing required fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotFound is a remote lookup that returned nothing.
	ErrNotFound = errors.New("not found")
)
