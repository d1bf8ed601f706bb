package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weatho/weatho/internal/recent"
	"github.com/weatho/weatho/internal/weather"
)

var validate = validator.New()

const fetchTimeout = 30 * time.Second

// Searcher is the location-search part of the weather client.
type Searcher interface {
	SearchLocations(ctx context.Context, query string) ([]weather.Location, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, monitor *weather.Monitor, store *recent.Store, searcher Searcher) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		return c.JSON(monitor.State())
	})

	v1.Post("/weather/fetch", func(c *fiber.Ctx) error {
		var loc *weather.Location
		if len(c.Body()) > 0 {
			parsed, err := parseLocationBody(c)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			loc = &parsed
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
		defer cancel()

		monitor.FetchWeather(ctx, loc)

		// Manually chosen locations are recorded here; GPS-derived ones
		// arrive through the monitor's notification callback instead.
		if loc != nil {
			store.Add(*loc)
		}

		return c.JSON(monitor.State())
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
		defer cancel()

		monitor.Refresh(ctx)
		return c.JSON(monitor.State())
	})

	v1.Post("/visibility", func(c *fiber.Ctx) error {
		var req struct {
			Visible *bool `json:"visible"`
		}
		if err := c.BodyParser(&req); err != nil || req.Visible == nil {
			return fiber.NewError(fiber.StatusBadRequest, "visible boolean is required")
		}

		monitor.SetVisible(*req.Visible)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}

		locations, err := searcher.SearchLocations(c.UserContext(), query)
		if err != nil {
			return searchError(err)
		}
		return c.JSON(locations)
	})

	v1.Get("/recent", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"searches":   store.List(),
			"isHydrated": store.Hydrated(),
		})
	})

	v1.Post("/recent", func(c *fiber.Ctx) error {
		loc, err := parseLocationBody(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		store.Add(loc)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/recent", func(c *fiber.Ctx) error {
		latStr := c.Query("lat")
		lonStr := c.Query("lon")

		// No coordinates clears the whole list.
		if latStr == "" && lonStr == "" {
			store.Clear()
			return c.SendStatus(fiber.StatusNoContent)
		}

		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lon must both be valid numbers")
		}

		store.Remove(weather.Location{Lat: lat, Lon: lon})
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// locationBody is the validated request form of a Location.
type locationBody struct {
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon     *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Name    string   `json:"name" validate:"required"`
	Country string   `json:"country" validate:"required"`
	State   string   `json:"state"`
}

func parseLocationBody(c *fiber.Ctx) (weather.Location, error) {
	var body locationBody
	if err := c.BodyParser(&body); err != nil {
		return weather.Location{}, err
	}
	if err := validate.Struct(body); err != nil {
		return weather.Location{}, err
	}

	return weather.Location{
		Lat:     *body.Lat,
		Lon:     *body.Lon,
		Name:    body.Name,
		Country: body.Country,
		State:   body.State,
	}, nil
}

// searchError maps client failures onto HTTP responses, preserving the
// upstream status code when the API supplied one.
func searchError(err error) error {
	var apiErr *weather.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code < 400 || code > 599 {
			code = fiber.StatusInternalServerError
		}
		return fiber.NewError(code, apiErr.Message)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to search locations")
}
