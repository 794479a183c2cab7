package pagination

import (
	"errors"
	"fmt"
)

// Done is returned by Next once the sequence has ended. It is returned on
// every call after the last page, after a transport failure and after Close.
var Done = errors.New("pagination: no more pages")

// ErrInvalidLimit is returned by NewStream for a negative page size.
var ErrInvalidLimit = errors.New("pagination: limit must not be negative")

// TransportError wraps a failure of the transport while fetching a page.
// It is terminal: the stream is exhausted once it has been returned.
type TransportError struct {
	// Page is the 1-based position of the page that failed.
	Page int
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a page body that is not well-formed. Pagination
// continues past it.
type DecodeError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
