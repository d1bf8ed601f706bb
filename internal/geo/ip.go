package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

const ipAPIEndpoint = "http://ip-api.com/json/"

// IPProvider approximates the device position from the host's public IP,
// the closest analogue to device geolocation for a headless deployment.
type IPProvider struct {
	client   *http.Client
	endpoint string
	opts     Options

	mu         sync.Mutex
	cached     Position
	resolvedAt time.Time
}

func NewIPProvider(client *http.Client, opts Options) *IPProvider {
	return &IPProvider{
		client:   client,
		endpoint: ipAPIEndpoint,
		opts:     opts,
	}
}

func (p *IPProvider) CurrentPosition(ctx context.Context) (Position, error) {
	p.mu.Lock()
	if p.opts.MaximumAge > 0 && !p.resolvedAt.IsZero() && time.Since(p.resolvedAt) < p.opts.MaximumAge {
		pos := p.cached
		p.mu.Unlock()
		return pos, nil
	}
	p.mu.Unlock()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return Position{}, &Error{Message: "Failed to get location", Code: CodePositionUnavailable}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Position{}, &Error{Message: "Location request timed out", Code: CodeTimeout}
		}
		return Position{}, &Error{Message: "Location information unavailable", Code: CodePositionUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return Position{}, &Error{Message: "Location access denied", Code: CodePermissionDenied}
	}
	if resp.StatusCode != http.StatusOK {
		return Position{}, &Error{Message: "Location information unavailable", Code: CodePositionUnavailable}
	}

	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Position{}, &Error{Message: "Location information unavailable", Code: CodePositionUnavailable}
	}
	if payload.Status != "success" {
		return Position{}, &Error{Message: "Location information unavailable", Code: CodePositionUnavailable}
	}

	pos := Position{Lat: payload.Lat, Lon: payload.Lon}

	p.mu.Lock()
	p.cached = pos
	p.resolvedAt = time.Now()
	p.mu.Unlock()

	return pos, nil
}
