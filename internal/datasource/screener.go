package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/quantdesk/internal/infra"
)

// ErrNoSymbolColumn is returned when no table on a page has a Symbol column.
var ErrNoSymbolColumn = errors.New("no table with a Symbol column")

// ScrapeSymbols downloads an HTML page listing companies (earnings
// calendars, M&A trackers) and returns the Symbol column of every table,
// deduplicated in page order.
func ScrapeSymbols(ctx context.Context, pageURL string) ([]string, error) {
	body, _, err := infra.DoGet(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer body.Close()
	return ParseSymbolTables(body)
}

// ParseSymbolTables reads every <table> in r and collects the cells under
// a header named "Symbol".
func ParseSymbolTables(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var symbols []string
	seen := make(map[string]bool)
	found := false
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		col := symbolColumn(table)
		if col < 0 {
			return
		}
		found = true
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= col {
				return
			}
			sym := strings.ToUpper(strings.TrimSpace(cells.Eq(col).Text()))
			if sym == "" || seen[sym] {
				return
			}
			seen[sym] = true
			symbols = append(symbols, sym)
		})
	})
	if !found {
		return nil, ErrNoSymbolColumn
	}
	return symbols, nil
}

// symbolColumn returns the index of the Symbol header, or -1.
func symbolColumn(table *goquery.Selection) int {
	headers := table.Find("thead th")
	if headers.Length() == 0 {
		headers = table.Find("tr").First().Find("th")
	}
	idx := -1
	headers.EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(th.Text()), "symbol") {
			idx = i
			return false
		}
		return true
	})
	return idx
}
