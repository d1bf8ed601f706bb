package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPProviderResolvesPosition(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"status":"success","lat":52.52,"lon":13.405}`))
	}))
	defer srv.Close()

	p := NewIPProvider(srv.Client(), Options{Timeout: time.Second, MaximumAge: time.Minute})
	p.endpoint = srv.URL

	pos, err := p.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52.52, pos.Lat)
	assert.Equal(t, 13.405, pos.Lon)

	// Within MaximumAge the cached position is reused.
	_, err = p.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIPProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer srv.Close()

	p := NewIPProvider(srv.Client(), Options{Timeout: time.Second})
	p.endpoint = srv.URL

	_, err := p.CurrentPosition(context.Background())
	var geoErr *Error
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, CodePositionUnavailable, geoErr.Code)
}

func TestIPProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewIPProvider(srv.Client(), Options{Timeout: 20 * time.Millisecond})
	p.endpoint = srv.URL

	_, err := p.CurrentPosition(context.Background())
	var geoErr *Error
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, CodeTimeout, geoErr.Code)
}
