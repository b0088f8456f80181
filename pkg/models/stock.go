// Package models defines the core data structures used throughout quantdesk.
package models

import "time"

// Quote is a point-in-time price snapshot for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	Currency  string    `json:"currency,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SpotPrice returns the live price, falling back to the previous close
// when the live price is unavailable.
func (q Quote) SpotPrice() (float64, bool) {
	if q.Price > 0 {
		return q.Price, true
	}
	if q.PrevClose > 0 {
		return q.PrevClose, true
	}
	return 0, false
}

// PriceBar is a single OHLCV bar.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a time-ascending sequence of bars for one symbol.
// Gaps (holidays, halts) are tolerated and never filled.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Dates returns the date column.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Last returns the most recent bar.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Headline is a news item about a symbol.
type Headline struct {
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// ListedPrice is one row of a scraped earnings or M&A table.
type ListedPrice struct {
	Symbol string  `json:"symbol" csv:"symbol"`
	Price  float64 `json:"price" csv:"price"`
}
