package weather

import (
	"time"
)

// Location identifies a place. Two locations are the same place iff Lat and
// Lon are exactly equal; geocoders can return slightly different coordinates
// for what a human would call the same city, which then count as distinct
// places here.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// SamePlace reports exact coordinate equality.
func (l Location) SamePlace(other Location) bool {
	return l.Lat == other.Lat && l.Lon == other.Lon
}

// Current holds normalized current conditions.
type Current struct {
	Temp               float64 `json:"temp"`
	FeelsLike          float64 `json:"feels_like"`
	Humidity           float64 `json:"humidity"`
	Pressure           float64 `json:"pressure"`
	VisibilityKm       float64 `json:"visibility"`
	UVIndex            float64 `json:"uv_index"`
	WindSpeed          float64 `json:"wind_speed"`
	WindDirection      float64 `json:"wind_direction"`
	WeatherCode        int     `json:"weather_code"`
	WeatherDescription string  `json:"weather_description"`
	Icon               string  `json:"icon"`
}

// AirQuality mirrors the pollutant breakdown of the air-pollution API.
type AirQuality struct {
	AQI  int     `json:"aqi"`
	CO   float64 `json:"co"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
}

// Forecast carries the short-term precipitation outlook.
type Forecast struct {
	PrecipitationProbability float64 `json:"precipitation_probability"`
	PrecipitationAmount      float64 `json:"precipitation_amount"`
}

// Astronomy holds formatted sunrise/sunset times.
type Astronomy struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

// Snapshot is the full weather view for one location at a point in time.
type Snapshot struct {
	Location   Location   `json:"location"`
	Current    Current    `json:"current"`
	AirQuality AirQuality `json:"air_quality"`
	Forecast   Forecast   `json:"forecast"`
	Astronomy  Astronomy  `json:"astronomy"`
	FetchedAt  time.Time  `json:"fetched_at"` // always UTC
}
