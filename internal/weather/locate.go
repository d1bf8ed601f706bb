package weather

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/weatho/weatho/internal/geo"
)

// Geocoder reverse-geocodes a position into a named Location. *Client
// satisfies this.
type Geocoder interface {
	LocationByCoords(ctx context.Context, lat, lon float64) (Location, error)
}

// DefaultLocation is the fallback when geolocation fails: New York City.
func DefaultLocation() Location {
	return Location{
		Lat:     40.7128,
		Lon:     -74.0060,
		Name:    "New York",
		Country: "US",
	}
}

// Resolver turns a device position into a named Location, degrading to a
// default location when either step fails.
type Resolver struct {
	provider geo.Provider
	geocoder Geocoder
	fallback Location
}

// NewResolver builds a resolver degrading to fallback. A zero fallback means
// DefaultLocation.
func NewResolver(provider geo.Provider, geocoder Geocoder, fallback Location) *Resolver {
	if fallback == (Location{}) {
		fallback = DefaultLocation()
	}
	return &Resolver{
		provider: provider,
		geocoder: geocoder,
		fallback: fallback,
	}
}

// CurrentLocation resolves the device position and reverse-geocodes it.
func (r *Resolver) CurrentLocation(ctx context.Context) (Location, error) {
	pos, err := r.provider.CurrentPosition(ctx)
	if err != nil {
		return Location{}, err
	}

	loc, err := r.geocoder.LocationByCoords(ctx, pos.Lat, pos.Lon)
	if err != nil {
		return Location{}, &geo.Error{Message: "Failed to get location details", Code: 4}
	}
	return loc, nil
}

// LocationWithFallback never fails: any geolocation or geocoding error is
// absorbed and the default location returned instead.
func (r *Resolver) LocationWithFallback(ctx context.Context) Location {
	loc, err := r.CurrentLocation(ctx)
	if err != nil {
		logrus.Warnf("failed to get current location, using default: %v", err)
		return r.fallback
	}
	return loc
}
