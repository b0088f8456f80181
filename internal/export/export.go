// Package export writes research results as CSV.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// ContractRow is one flattened option contract.
type ContractRow struct {
	Expiration        string  `csv:"expiration"`
	Right             string  `csv:"right"`
	Strike            float64 `csv:"strike"`
	ImpliedVolatility float64 `csv:"implied_volatility"`
}

// GreeksRow is one point of a Greeks series.
type GreeksRow struct {
	Underlying        string  `csv:"underlying"`
	Right             string  `csv:"right"`
	Expiration        string  `csv:"expiration"`
	Strike            float64 `csv:"strike"`
	ImpliedVolatility float64 `csv:"implied_volatility"`
	YearsToExpiry     float64 `csv:"years_to_expiry"`
	Price             float64 `csv:"price"`
	Delta             float64 `csv:"delta"`
	Gamma             float64 `csv:"gamma"`
	Theta             float64 `csv:"theta"`
	Vega              float64 `csv:"vega"`
	Rho               float64 `csv:"rho"`
}

// BarRow is one price bar.
type BarRow struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// Contracts writes a flattened chain.
func Contracts(w io.Writer, flat []models.FlatContract) error {
	rows := make([]ContractRow, len(flat))
	for i, f := range flat {
		rows[i] = ContractRow{
			Expiration:        f.Expiration.Format(models.DateLayout),
			Right:             string(f.Right),
			Strike:            f.Strike,
			ImpliedVolatility: f.ImpliedVolatility,
		}
	}
	return marshal(w, &rows)
}

// Greeks writes one or more Greeks series back to back.
func Greeks(w io.Writer, series ...models.GreeksSeries) error {
	var rows []GreeksRow
	for _, s := range series {
		for _, p := range s.Points {
			rows = append(rows, GreeksRow{
				Underlying:        s.Underlying,
				Right:             string(s.Right),
				Expiration:        p.Expiration.Format(models.DateLayout),
				Strike:            p.Strike,
				ImpliedVolatility: p.ImpliedVolatility,
				YearsToExpiry:     p.YearsToExpiry,
				Price:             p.Price,
				Delta:             p.Delta,
				Gamma:             p.Gamma,
				Theta:             p.Theta,
				Vega:              p.Vega,
				Rho:               p.Rho,
			})
		}
	}
	return marshal(w, &rows)
}

// ListedPrices writes a symbol/price table.
func ListedPrices(w io.Writer, prices []models.ListedPrice) error {
	rows := append([]models.ListedPrice{}, prices...)
	return marshal(w, &rows)
}

// Bars writes a price series. Intraday bars keep their time of day.
func Bars(w io.Writer, series models.PriceSeries) error {
	layout := models.DateLayout
	for _, b := range series.Bars {
		if b.Date.Hour() != 0 || b.Date.Minute() != 0 {
			layout = "2006-01-02 15:04"
			break
		}
	}
	rows := make([]BarRow, len(series.Bars))
	for i, b := range series.Bars {
		rows[i] = BarRow{
			Date:   b.Date.Format(layout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return marshal(w, &rows)
}

// ReadListedPrices parses a table written by ListedPrices.
func ReadListedPrices(r io.Reader) ([]models.ListedPrice, error) {
	var rows []models.ListedPrice
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	return rows, nil
}

// ToFile creates path, including missing directories, and runs write on it.
func ToFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func marshal(w io.Writer, rows any) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
