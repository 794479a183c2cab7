package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// DecodeFunc turns a page body into a value.
type DecodeFunc[T any] func(body []byte) (T, error)

// Decoded decodes each page of a Stream. A decode failure is reported for
// that page only; the underlying stream keeps paginating.
type Decoded[T any] struct {
	stream *Stream
	decode DecodeFunc[T]
}

// NewDecoded wraps s with decode.
func NewDecoded[T any](s *Stream, decode DecodeFunc[T]) *Decoded[T] {
	return &Decoded[T]{stream: s, decode: decode}
}

// NewJSONStream decodes every page into a generic JSON value.
func NewJSONStream(s *Stream) *Decoded[any] {
	return NewDecoded(s, DecodeJSON)
}

// DecodeJSON parses body as a single JSON document. Numbers are kept as
// json.Number so prices and sizes lose no precision.
func DecodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return v, nil
}

// UnmarshalInto returns a DecodeFunc using json.Unmarshal into T.
func UnmarshalInto[T any]() DecodeFunc[T] {
	return func(body []byte) (T, error) {
		var v T
		err := json.Unmarshal(body, &v)
		return v, err
	}
}

// Next returns the decoded value of the next page. Errors from the stream,
// including Done and *TransportError, are returned unchanged. A body that
// fails to decode yields a *DecodeError.
func (d *Decoded[T]) Next(ctx context.Context) (T, error) {
	var zero T

	page, err := d.stream.Next(ctx)
	if err != nil {
		return zero, err
	}

	v, err := d.decode(page.Body)
	if err != nil {
		paginationErrorsTotal.WithLabelValues("decode").Inc()
		d.stream.logger.Warn().
			Err(err).
			Int("page", page.Number).
			Int("status_code", page.StatusCode).
			Msg("Page body could not be decoded")
		return zero, &DecodeError{Page: page.Number, Err: err}
	}

	return v, nil
}

// All returns an iterator over the remaining decoded values. Decode errors
// are yielded and iteration continues; any other error ends it. The stream
// is closed when the loop ends.
func (d *Decoded[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer d.Close()

		for {
			v, err := d.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if !yield(v, err) {
				return
			}

			var decodeErr *DecodeError
			if err != nil && !errors.As(err, &decodeErr) {
				return
			}
		}
	}
}

// Close closes the underlying stream.
func (d *Decoded[T]) Close() error {
	return d.stream.Close()
}

// State returns the state of the underlying stream.
func (d *Decoded[T]) State() State {
	return d.stream.State()
}

// Stream returns the underlying page stream.
func (d *Decoded[T]) Stream() *Stream {
	return d.stream
}
