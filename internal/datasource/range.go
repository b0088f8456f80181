package datasource

import (
	"fmt"
	"time"
)

// Range selects a window of price history: either an explicit Start/End or
// a relative Period such as "1y". Interval is the bar size ("1d", "1m").
type Range struct {
	Start    time.Time
	End      time.Time
	Period   string
	Interval string
}

// PeriodRange is a relative window ending now.
func PeriodRange(period, interval string) Range {
	return Range{Period: period, Interval: interval}
}

// DateRange is an explicit window of daily bars.
func DateRange(start, end time.Time) Range {
	return Range{Start: start, End: end, Interval: "1d"}
}

// interval returns the bar size, defaulting to daily.
func (r Range) interval() string {
	if r.Interval == "" {
		return "1d"
	}
	return r.Interval
}

// Bounds resolves the window against now.
func (r Range) Bounds(now time.Time) (time.Time, time.Time, error) {
	if r.Period == "" {
		if r.Start.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("range needs a period or a start date")
		}
		end := r.End
		if end.IsZero() {
			end = now
		}
		if end.Before(r.Start) {
			return time.Time{}, time.Time{}, fmt.Errorf("range end %s before start %s", end.Format("2006-01-02"), r.Start.Format("2006-01-02"))
		}
		return r.Start, end, nil
	}
	switch r.Period {
	case "1d":
		return now.AddDate(0, 0, -1), now, nil
	case "5d":
		return now.AddDate(0, 0, -5), now, nil
	case "1mo":
		return now.AddDate(0, -1, 0), now, nil
	case "3mo":
		return now.AddDate(0, -3, 0), now, nil
	case "6mo":
		return now.AddDate(0, -6, 0), now, nil
	case "1y":
		return now.AddDate(-1, 0, 0), now, nil
	case "2y":
		return now.AddDate(-2, 0, 0), now, nil
	case "5y":
		return now.AddDate(-5, 0, 0), now, nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), now, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", r.Period)
}

func (r Range) String() string {
	if r.Period != "" {
		return r.Period + "/" + r.interval()
	}
	return fmt.Sprintf("%s..%s/%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.interval())
}
