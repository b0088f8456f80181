package datasource

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/seenimoa/quantdesk/internal/infra"
	"github.com/seenimoa/quantdesk/internal/logging"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// DefaultHeadlineURL is the Yahoo Finance per-symbol RSS feed.
const DefaultHeadlineURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// News fetches per-symbol headlines from an RSS feed.
type News struct {
	feedURL string
	cache   *infra.Cache[[]models.Headline]
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
	log     zerolog.Logger
}

// NewNews creates a headline source. An empty feedURL uses Yahoo Finance.
func NewNews(feedURL string, log zerolog.Logger) *News {
	if feedURL == "" {
		feedURL = DefaultHeadlineURL
	}
	parser := gofeed.NewParser()
	parser.UserAgent = infra.DefaultUserAgent
	return &News{
		feedURL: feedURL,
		cache:   infra.NewCache[[]models.Headline](10 * time.Minute),
		limiter: infra.NewRateLimiter(2),
		parser:  parser,
		log:     log,
	}
}

// Headlines returns up to limit headlines for symbol, newest first.
// limit <= 0 returns all of them.
func (n *News) Headlines(ctx context.Context, symbol string, limit int) ([]models.Headline, error) {
	symbol = normalize(symbol)
	items, ok := n.cache.Get(symbol)
	if !ok {
		var err error
		items, err = n.fetch(ctx, symbol)
		if err != nil {
			return nil, err
		}
		n.cache.Set(symbol, items)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (n *News) fetch(ctx context.Context, symbol string) ([]models.Headline, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{"s": {symbol}, "region": {"US"}, "lang": {"en-US"}}
	start := time.Now()
	feed, err := n.parser.ParseURLWithContext(n.feedURL+"?"+q.Encode(), ctx)
	logging.LogAPICall(n.log, "rss", "headline/"+symbol, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("headlines %s: %w", symbol, err)
	}

	source := feed.Title
	if source == "" {
		source = "Yahoo Finance"
	}
	out := make([]models.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		h := models.Headline{
			Symbol:  symbol,
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  source,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			h.PublishedAt = item.PublishedParsed.UTC()
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}

// cleanHTML strips markup from an RSS description.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
