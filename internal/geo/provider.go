// Package geo resolves the device's current position. Providers mirror the
// browser geolocation error contract: failures carry a numeric code so
// callers can tell permission problems from timeouts.
package geo

import (
	"context"
	"fmt"
	"time"
)

// Geolocation error codes.
const (
	CodeUnsupported         = 0
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// Error is a geolocation failure with a diagnostic code.
type Error struct {
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Position is a raw coordinate pair before reverse geocoding.
type Position struct {
	Lat float64
	Lon float64
}

// Provider reports the device's current position. Implementations enforce
// their own resolution timeout and reject with an *Error on failure.
type Provider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Options tune position resolution.
type Options struct {
	// Timeout bounds a single resolution attempt.
	Timeout time.Duration
	// MaximumAge allows reusing a previously resolved position this old.
	MaximumAge time.Duration
}

// DefaultOptions match the source dashboard: 10s resolution timeout, 5m
// position reuse.
func DefaultOptions() Options {
	return Options{
		Timeout:    10 * time.Second,
		MaximumAge: 5 * time.Minute,
	}
}

// StaticProvider always reports a fixed position, for deployments pinned to
// known coordinates.
type StaticProvider struct {
	Position Position
}

func (p *StaticProvider) CurrentPosition(context.Context) (Position, error) {
	return p.Position, nil
}
