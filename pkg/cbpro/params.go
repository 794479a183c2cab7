package cbpro

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/google/go-querystring/query"
)

// Candle granularities accepted by the exchange, in seconds.
var Granularities = []int{60, 300, 900, 3600, 21600, 86400}

// bookParams is the query of the order book endpoint.
type bookParams struct {
	Level int `url:"level"`
}

// CandleParams selects the historic rates to return. Start and End are
// either both set or both zero, in which case the exchange returns the
// most recent candles.
type CandleParams struct {
	Start       time.Time `url:"start,omitempty"`
	End         time.Time `url:"end,omitempty"`
	Granularity int       `url:"granularity"`
}

// Validate checks the params against the exchange's constraints.
func (p CandleParams) Validate() error {
	if !slices.Contains(Granularities, p.Granularity) {
		return fmt.Errorf("granularity must be one of %v (got %d)", Granularities, p.Granularity)
	}
	if p.Start.IsZero() != p.End.IsZero() {
		return fmt.Errorf("start and end must be set together")
	}
	if !p.Start.IsZero() && !p.End.After(p.Start) {
		return fmt.Errorf("end must be after start")
	}
	return nil
}

// encode renders params as a query string with RFC 3339 timestamps.
func encode(params any) (url.Values, error) {
	if params == nil {
		return nil, nil
	}
	v, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return v, nil
}
