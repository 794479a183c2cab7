package pagination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the pagination state of a Stream.
type State int

const (
	// StateActive means a page request is owned and the sequence continues.
	StateActive State = iota

	// StateExhausted is terminal: no further requests are issued.
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Doer performs a single HTTP request. *http.Client and *client.Client
// both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page is one resolved page response.
type Page struct {
	// Number is the 1-based position of the page in the stream.
	Number int

	// URL is the full request URL including query parameters.
	URL string

	StatusCode int
	Header     http.Header
	Body       []byte

	// Cursor is the continuation cursor, empty on the last page.
	Cursor string
}

// Config holds stream configuration.
type Config struct {
	// Limit is sent as the limit parameter on every request (0 omits it).
	Limit int

	// CursorHeader names the response header holding the continuation cursor.
	CursorHeader string

	// Logger overrides the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the configuration used for exchange trade listings.
func DefaultConfig() Config {
	return Config{
		Limit:        100,
		CursorHeader: DefaultCursorHeader,
	}
}

// Stream fetches the pages of a cursor-paginated endpoint one at a time.
// Page k+1 is requested only after page k has been received and carries a
// continuation cursor, so a Stream never owns more than one request.
//
// A Stream is not safe for concurrent use. Close it to abandon the
// sequence early; this cancels the request in flight.
type Stream struct {
	// ctx bounds every request of the stream.
	ctx      context.Context
	doer     Doer
	endpoint *url.URL
	limit    int
	header   string

	state   State
	pending *pendingFetch
	pages   int

	logger zerolog.Logger
}

// NewStream creates a stream over endpoint and dispatches the first
// request immediately. Cancelling ctx fails the request in flight and
// therefore ends the stream.
func NewStream(ctx context.Context, doer Doer, endpoint string, cfg Config) (*Stream, error) {
	if doer == nil {
		return nil, fmt.Errorf("doer is required")
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidLimit, cfg.Limit)
	}
	if cfg.CursorHeader == "" {
		cfg.CursorHeader = DefaultCursorHeader
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("endpoint must be an absolute URL (got %q)", endpoint)
	}

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	s := &Stream{
		ctx:      ctx,
		doer:     doer,
		endpoint: u,
		limit:    cfg.Limit,
		header:   cfg.CursorHeader,
		state:    StateActive,
		logger: base.With().
			Str("component", "pagination").
			Str("stream_id", uuid.NewString()).
			Str("endpoint", u.Path).
			Logger(),
	}

	s.dispatch("")

	return s, nil
}

// Next returns the next page. It blocks until the owned request resolves
// or ctx ends; in the latter case it returns ctx.Err() and the request
// stays in flight for the next call.
//
// A transport failure is returned once as a *TransportError and exhausts
// the stream. After the last page, a failure or Close, Next returns Done.
func (s *Stream) Next(ctx context.Context) (*Page, error) {
	if s.state == StateExhausted {
		return nil, Done
	}

	if err := s.pending.wait(ctx); err != nil {
		return nil, err
	}

	page, err := s.pending.page, s.pending.err
	s.pending.discard()
	s.pending = nil

	if err != nil {
		paginationErrorsTotal.WithLabelValues("transport").Inc()
		s.logger.Warn().
			Err(err).
			Int("page", s.pages+1).
			Msg("Page fetch failed, stream exhausted")
		s.exhaust("failed")
		return nil, err
	}

	s.pages++
	paginationPagesTotal.WithLabelValues(s.endpoint.Path).Inc()

	if page.Cursor == "" {
		s.logger.Debug().
			Int("pages", s.pages).
			Int("status_code", page.StatusCode).
			Msg("Last page received")
		s.exhaust("complete")
		return page, nil
	}

	s.dispatch(page.Cursor)

	return page, nil
}

// All returns an iterator over the remaining pages. Iteration stops after
// the first error; the stream is closed when the loop ends.
func (s *Stream) All(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		defer s.Close()

		for {
			page, err := s.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if !yield(page, err) || err != nil {
				return
			}
		}
	}
}

// Close abandons the stream, cancelling the request in flight. It is safe
// to call more than once.
func (s *Stream) Close() error {
	if s.state == StateExhausted {
		return nil
	}

	s.logger.Debug().Int("pages", s.pages).Msg("Stream closed")
	s.exhaust("closed")

	return nil
}

// State returns the current pagination state.
func (s *Stream) State() State {
	return s.state
}

// Pages returns the number of pages yielded so far.
func (s *Stream) Pages() int {
	return s.pages
}

// dispatch installs the request for the page after the last yielded one.
func (s *Stream) dispatch(cursor string) {
	number := s.pages + 1

	target, err := pageURL(s.endpoint, s.limit, cursor)
	if err != nil {
		terr := &TransportError{Page: number, URL: s.endpoint.String(), Err: err}
		s.pending = startFetch(s.ctx, func(context.Context) (*Page, error) {
			return nil, terr
		})
		return
	}

	s.logger.Debug().
		Int("page", number).
		Str("after", cursor).
		Msg("Dispatching page request")

	s.pending = startFetch(s.ctx, fetchPage(s.doer, s.header, number, target))
}

// exhaust moves the stream to its terminal state.
func (s *Stream) exhaust(outcome string) {
	if s.pending != nil {
		s.pending.discard()
		s.pending = nil
	}
	s.state = StateExhausted
	paginationStreamsTotal.WithLabelValues(outcome).Inc()
}

// fetchPage returns the request for a single page. The body is read in full
// so the connection is released before the page is handed out.
func fetchPage(doer Doer, cursorHeader string, number int, target string) fetchFunc {
	return func(ctx context.Context) (*Page, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, &TransportError{Page: number, URL: target, Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := doer.Do(req)
		if err != nil {
			return nil, &TransportError{Page: number, URL: target, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{Page: number, URL: target, Err: fmt.Errorf("read body: %w", err)}
		}

		cursor, _ := CursorFromHeader(resp.Header, cursorHeader)

		return &Page{
			Number:     number,
			URL:        target,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Cursor:     cursor,
		}, nil
	}
}
