package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Providers lists the accepted data.provider values.
var Providers = []string{"yahoo", "polygon", "composite"}

// Validate rejects settings the analytics cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if !knownProvider(c.Data.Provider) {
		errs = append(errs, fmt.Errorf("%w: data.provider %q (want one of %v)", ErrInvalid, c.Data.Provider, Providers))
	}
	if c.Data.Provider == "polygon" && c.Polygon.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: data.provider polygon needs polygon.api_key", ErrInvalid))
	}
	if c.Options.StrikeRangeFactor < 0 {
		errs = append(errs, fmt.Errorf("%w: options.strike_range_factor %v is negative", ErrInvalid, c.Options.StrikeRangeFactor))
	}
	for name, v := range map[string]int{
		"options.horizon_days":       c.Options.HorizonDays,
		"options.skew_window_days":   c.Options.SkewWindowDays,
		"options.surface_resolution": c.Options.SurfaceResolution,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, name, v))
		}
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: api.port %d", ErrInvalid, c.API.Port))
	}
	return errors.Join(errs...)
}

func knownProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
