package surface

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// DefaultResolution is the number of samples along each grid axis.
const DefaultResolution = 100

var (
	// ErrInsufficientVariation means fewer than two distinct strikes or
	// expirations were supplied.
	ErrInsufficientVariation = errors.New("surface needs at least two distinct strikes and expirations")
	// ErrNonFiniteIV means an implied volatility was NaN or infinite.
	ErrNonFiniteIV = errors.New("implied volatility is not finite")
)

// Options controls grid construction.
type Options struct {
	Resolution int
}

// Grid is an interpolated implied-volatility surface. IV[i][j] is the value
// at (ExpirationAxis[i], StrikeAxis[j]); cells outside the quoted strike span
// of the neighbouring expirations are NaN.
type Grid struct {
	StrikeAxis     []float64   `json:"strike_axis"`     // strike / spot
	ExpirationAxis []float64   `json:"expiration_axis"` // days since Unix epoch
	IV             [][]float64 `json:"iv"`
	Expirations    []time.Time `json:"expirations"` // distinct quoted expirations
}

// DayNumber converts t to fractional days since the Unix epoch.
func DayNumber(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

// FromDayNumber is the inverse of DayNumber, truncated to seconds.
func FromDayNumber(d float64) time.Time {
	return time.Unix(int64(math.Round(d*86400)), 0).UTC()
}

// smile is the fitted strike curve of one expiration.
type smile struct {
	day    float64
	lo, hi float64
	fit    interp.Predictor
}

// spanTolerance absorbs rounding in the generated strike axis.
const spanTolerance = 1e-9

func (s smile) at(m float64) float64 {
	if m < s.lo-spanTolerance || m > s.hi+spanTolerance {
		return math.NaN()
	}
	return s.fit.Predict(math.Min(math.Max(m, s.lo), s.hi))
}

// BuildSurfaceGrid normalizes strikes by spot, places expirations on a day
// number axis and interpolates implied volatility over a regular grid. Each
// expiration gets a monotone cubic across moneyness; the surface is linear in
// time between neighbouring expirations.
func BuildSurfaceGrid(flat []models.FlatContract, spot float64, opts Options) (*Grid, error) {
	if !chain.ValidSpot(spot) {
		return nil, chain.ErrMissingPrice
	}
	res := opts.Resolution
	if res < 2 {
		res = DefaultResolution
	}

	strikes := map[float64]struct{}{}
	days := map[float64]struct{}{}
	for _, f := range flat {
		strikes[f.Strike] = struct{}{}
		days[DayNumber(f.Expiration)] = struct{}{}
	}
	if len(strikes) < 2 || len(days) < 2 {
		return nil, fmt.Errorf("%w: %d strikes, %d expirations", ErrInsufficientVariation, len(strikes), len(days))
	}
	for _, f := range flat {
		if math.IsNaN(f.ImpliedVolatility) || math.IsInf(f.ImpliedVolatility, 0) {
			return nil, fmt.Errorf("%w: strike %v expiring %s", ErrNonFiniteIV, f.Strike, f.Expiration.Format(models.DateLayout))
		}
	}

	smiles, err := fitSmiles(flat, spot)
	if err != nil {
		return nil, err
	}

	mLo, mHi := math.Inf(1), math.Inf(-1)
	for _, s := range smiles {
		mLo = math.Min(mLo, s.lo)
		mHi = math.Max(mHi, s.hi)
	}
	g := &Grid{
		StrikeAxis:     linspace(mLo, mHi, res),
		ExpirationAxis: linspace(smiles[0].day, smiles[len(smiles)-1].day, res),
		IV:             make([][]float64, res),
	}
	for _, s := range smiles {
		g.Expirations = append(g.Expirations, FromDayNumber(s.day))
	}

	for i, day := range g.ExpirationAxis {
		a, b, w := bracket(smiles, day)
		row := make([]float64, res)
		for j, m := range g.StrikeAxis {
			row[j] = blend(a.at(m), b.at(m), w)
		}
		g.IV[i] = row
	}
	return g, nil
}

// fitSmiles groups points by expiration, averages duplicate strikes (a call
// and a put quoted at the same strike) and fits each expiration. Expirations
// with a single strike can't be fitted and are skipped.
func fitSmiles(flat []models.FlatContract, spot float64) ([]smile, error) {
	type acc struct{ sum, n float64 }
	byDay := map[float64]map[float64]*acc{}
	for _, f := range flat {
		d := DayNumber(f.Expiration)
		if byDay[d] == nil {
			byDay[d] = map[float64]*acc{}
		}
		m := f.Strike / spot
		a := byDay[d][m]
		if a == nil {
			a = &acc{}
			byDay[d][m] = a
		}
		a.sum += f.ImpliedVolatility
		a.n++
	}

	var smiles []smile
	for d, pts := range byDay {
		if len(pts) < 2 {
			continue
		}
		xs := make([]float64, 0, len(pts))
		for m := range pts {
			xs = append(xs, m)
		}
		sort.Float64s(xs)
		ys := make([]float64, len(xs))
		for i, m := range xs {
			ys[i] = pts[m].sum / pts[m].n
		}
		fit, err := fitCurve(xs, ys)
		if err != nil {
			return nil, fmt.Errorf("fit expiration %s: %w", FromDayNumber(d).Format(models.DateLayout), err)
		}
		smiles = append(smiles, smile{day: d, lo: xs[0], hi: xs[len(xs)-1], fit: fit})
	}
	if len(smiles) < 2 {
		return nil, fmt.Errorf("%w: %d expirations quote two or more strikes", ErrInsufficientVariation, len(smiles))
	}
	sort.Slice(smiles, func(i, j int) bool { return smiles[i].day < smiles[j].day })
	return smiles, nil
}

func fitCurve(xs, ys []float64) (interp.Predictor, error) {
	if len(xs) >= 3 {
		var fb interp.FritschButland
		if err := fb.Fit(xs, ys); err == nil {
			return &fb, nil
		}
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &pl, nil
}

// bracket finds the smiles surrounding day and the weight of the later one.
func bracket(smiles []smile, day float64) (smile, smile, float64) {
	i := sort.Search(len(smiles), func(i int) bool { return smiles[i].day >= day })
	switch {
	case i == 0:
		return smiles[0], smiles[0], 0
	case i >= len(smiles):
		last := smiles[len(smiles)-1]
		return last, last, 0
	}
	a, b := smiles[i-1], smiles[i]
	return a, b, (day - a.day) / (b.day - a.day)
}

func blend(a, b, w float64) float64 {
	switch {
	case w == 0:
		return a
	case w == 1:
		return b
	}
	return (1-w)*a + w*b
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
