package cbpro

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one entry of a product's trade history.
type Trade struct {
	Time    time.Time       `json:"time"`
	TradeID int64           `json:"trade_id"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Side    string          `json:"side"`
}

// TradeSummary aggregates trades across pages.
type TradeSummary struct {
	Count int
	Buys  int
	Sells int

	// Volume is the total size traded.
	Volume   decimal.Decimal
	Notional decimal.Decimal

	High decimal.Decimal
	Low  decimal.Decimal

	// FirstTradeID and LastTradeID are the first and last ids seen, in
	// listing order (newest first).
	FirstTradeID int64
	LastTradeID  int64
}

// Summarize aggregates a single batch of trades.
func Summarize(trades []Trade) TradeSummary {
	var s TradeSummary
	s.Add(trades)
	return s
}

// Add folds trades into the summary.
func (s *TradeSummary) Add(trades []Trade) {
	for _, t := range trades {
		if s.Count == 0 {
			s.FirstTradeID = t.TradeID
			s.High = t.Price
			s.Low = t.Price
		}
		s.LastTradeID = t.TradeID
		s.Count++

		switch t.Side {
		case "buy":
			s.Buys++
		case "sell":
			s.Sells++
		}

		s.Volume = s.Volume.Add(t.Size)
		s.Notional = s.Notional.Add(t.Price.Mul(t.Size))
		if t.Price.GreaterThan(s.High) {
			s.High = t.Price
		}
		if t.Price.LessThan(s.Low) {
			s.Low = t.Price
		}
	}
}

// VWAP is the volume-weighted average price, zero without volume.
func (s TradeSummary) VWAP() decimal.Decimal {
	if s.Volume.IsZero() {
		return decimal.Zero
	}
	return s.Notional.DivRound(s.Volume, 8)
}
