package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// APIError is the distinguishable failure type for every client operation:
// configuration, auth, network, and non-2xx responses all surface as an
// APIError with a human-readable message and a numeric code.
type APIError struct {
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Client talks to the OpenWeatherMap current-weather, air-pollution, and
// geocoding APIs.
type Client struct {
	apiKey  string
	baseURL string
	geoURL  string
	httpCfg httpClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a client around a shared HTTP client.
func NewClient(client *http.Client, apiKey string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		geoURL:  "https://api.openweathermap.org/geo/1.0",
		httpCfg: httpClientConfig{
			Client: client,
			Backoff: backoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

type geoResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

func (r geoResponse) toLocation() Location {
	return Location{Lat: r.Lat, Lon: r.Lon, Name: r.Name, Country: r.Country, State: r.State}
}

// CurrentWeather fetches current conditions and air quality concurrently and
// merges them into a single Snapshot.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	if c.apiKey == "" {
		return nil, &APIError{Message: "Weather API key is not configured", Code: 500}
	}

	var (
		wg         sync.WaitGroup
		current    currentPayload
		pollution  pollutionPayload
		currentErr error
		airErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		currentErr = c.getJSON(ctx, c.baseURL+"/weather", url.Values{
			"lat": {formatCoord(lat)}, "lon": {formatCoord(lon)}, "units": {"metric"},
		}, &current)
	}()
	go func() {
		defer wg.Done()
		airErr = c.getJSON(ctx, c.baseURL+"/air_pollution", url.Values{
			"lat": {formatCoord(lat)}, "lon": {formatCoord(lon)},
		}, &pollution)
	}()
	wg.Wait()

	if currentErr != nil {
		return nil, asAPIError(currentErr, "Failed to fetch weather data")
	}
	if airErr != nil {
		return nil, asAPIError(airErr, "Failed to fetch weather data")
	}

	snap := buildSnapshot(current, pollution)
	return &snap, nil
}

// SearchLocations geocodes a free-text query into up to five candidates.
func (c *Client) SearchLocations(ctx context.Context, query string) ([]Location, error) {
	if c.apiKey == "" {
		return nil, &APIError{Message: "Weather API key is not configured", Code: 500}
	}

	var results []geoResponse
	err := c.getJSON(ctx, c.geoURL+"/direct", url.Values{
		"q": {query}, "limit": {"5"},
	}, &results)
	if err != nil {
		return nil, asAPIError(err, "Failed to search locations")
	}

	locations := make([]Location, 0, len(results))
	for _, r := range results {
		locations = append(locations, r.toLocation())
	}
	return locations, nil
}

// LocationByCoords reverse-geocodes a coordinate pair.
func (c *Client) LocationByCoords(ctx context.Context, lat, lon float64) (Location, error) {
	if c.apiKey == "" {
		return Location{}, &APIError{Message: "Weather API key is not configured", Code: 500}
	}

	var results []geoResponse
	err := c.getJSON(ctx, c.geoURL+"/reverse", url.Values{
		"lat": {formatCoord(lat)}, "lon": {formatCoord(lon)}, "limit": {"1"},
	}, &results)
	if err != nil {
		return Location{}, asAPIError(err, "Failed to get location")
	}
	if len(results) == 0 {
		return Location{}, &APIError{Message: "Failed to get location", Code: 500}
	}
	return results[0].toLocation(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		for k, v := range params {
			values[k] = v
		}
		values.Set("appid", c.apiKey)

		u := fmt.Sprintf("%s?%s", endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return nil
}

// errMalformedPayload marks a 2xx response whose body did not decode.
var errMalformedPayload = errors.New("malformed response payload")

// asAPIError maps transport-level failures onto the exposed error type. A
// non-2xx response reuses the API's own message and status code when present;
// an undecodable success body is reported as an unexpected error rather than
// a fetch failure.
func asAPIError(err error, defaultMsg string) *APIError {
	if errors.Is(err, errMalformedPayload) {
		return &APIError{Message: "Unexpected error occurred", Code: 500}
	}
	if se, ok := err.(*statusError); ok {
		msg := defaultMsg
		var payload struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(se.body, &payload); jsonErr == nil && payload.Message != "" {
			msg = payload.Message
		}
		return &APIError{Message: msg, Code: se.code}
	}
	return &APIError{Message: defaultMsg, Code: 500}
}

type currentPayload struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Visibility float64 `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

type pollutionPayload struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   float64 `json:"co"`
			NO2  float64 `json:"no2"`
			O3   float64 `json:"o3"`
			SO2  float64 `json:"so2"`
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
		} `json:"components"`
	} `json:"list"`
}

func buildSnapshot(w currentPayload, p pollutionPayload) Snapshot {
	snap := Snapshot{
		Location: Location{
			Lat:     w.Coord.Lat,
			Lon:     w.Coord.Lon,
			Name:    w.Name,
			Country: w.Sys.Country,
		},
		Current: Current{
			Temp:          math.Round(w.Main.Temp),
			FeelsLike:     math.Round(w.Main.FeelsLike),
			Humidity:      w.Main.Humidity,
			Pressure:      w.Main.Pressure,
			VisibilityKm:  w.Visibility / 1000,
			WindSpeed:     w.Wind.Speed,
			WindDirection: w.Wind.Deg,
		},
		Astronomy: Astronomy{
			Sunrise: time.Unix(w.Sys.Sunrise, 0).Format("3:04 PM"),
			Sunset:  time.Unix(w.Sys.Sunset, 0).Format("3:04 PM"),
		},
		FetchedAt: time.Now().UTC(),
	}

	if len(w.Weather) > 0 {
		snap.Current.WeatherCode = w.Weather[0].ID
		snap.Current.WeatherDescription = w.Weather[0].Description
		snap.Current.Icon = w.Weather[0].Icon
	}

	if len(p.List) > 0 {
		first := p.List[0]
		snap.AirQuality = AirQuality{
			AQI:  first.Main.AQI,
			CO:   first.Components.CO,
			NO2:  first.Components.NO2,
			O3:   first.Components.O3,
			SO2:  first.Components.SO2,
			PM25: first.Components.PM25,
			PM10: first.Components.PM10,
		}
	}

	return snap
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%f", v)
}
