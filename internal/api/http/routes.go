package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/meteo-aggregation/internal/events"
	"github.com/i474232898/meteo-aggregation/internal/geocode"
	"github.com/i474232898/meteo-aggregation/internal/logging"
	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

var validate = validator.New()

const (
	errCoordsRequired  = "lat y lon son obligatorios"
	errLatRange        = "lat debe estar entre -90 y 90"
	errLonRange        = "lon debe estar entre -180 y 180"
	maxForecastHours   = 384
	requestIDLocalsKey = "requestid"
)

// MeteoService is what the /api/meteo handler needs from meteo.Service.
type MeteoService interface {
	Aggregate(ctx context.Context, q meteo.Query) meteo.MergedReading
	Now() time.Time
}

// EventLister lists open natural events.
type EventLister interface {
	OpenEvents(ctx context.Context, limit int) ([]events.Event, error)
}

// EventFeed passes the raw EONET events document through.
type EventFeed interface {
	RawEvents(ctx context.Context, limit int) (json.RawMessage, error)
}

// FireLister lists active fire detections.
type FireLister interface {
	ActiveFires(ctx context.Context) ([]events.Event, error)
}

// Deps bundles the handlers' collaborators. Nil collaborators leave their route unregistered.
type Deps struct {
	Meteo    MeteoService
	EONET    EventLister
	Feed     EventFeed
	FIRMS    FireLister
	Geocoder geocode.Reverser
	Logger   *slog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	api := app.Group("/api")

	if deps.Meteo != nil {
		api.Get("/meteo", meteoHandler(deps.Meteo, logger))
	}
	if deps.EONET != nil {
		api.Get("/nasa-eonet", eonetHandler(deps.EONET, logger))
	}
	if deps.Feed != nil {
		api.Get("/nasa-events", eventFeedHandler(deps.Feed, logger))
	}
	if deps.FIRMS != nil {
		api.Get("/nasa-fires", firesHandler(deps.FIRMS, deps.Meteo, logger))
	}
	if deps.Geocoder != nil {
		api.Get("/reverse-geocode", reverseGeocodeHandler(deps.Geocoder, logger))
	}
}

// ErrorHandler renders every unhandled error as {ok:false, error}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"ok":    false,
		"error": err.Error(),
	})
}

// meteoQuery holds the validated query parameters of /api/meteo.
type meteoQuery struct {
	Lat      float64 `validate:"gte=-90,lte=90"`
	Lon      float64 `validate:"gte=-180,lte=180"`
	Hours    int     `validate:"gte=1,lte=384"`
	Timezone string  `validate:"required"`
}

func parseMeteoQuery(c *fiber.Ctx) (meteoQuery, error) {
	q := meteoQuery{Hours: meteo.DefaultHours, Timezone: meteo.DefaultTimezone}

	lat, latOK := parseFinite(c.Query("lat"))
	lon, lonOK := parseFinite(c.Query("lon"))
	if !latOK || !lonOK {
		return q, errors.New(errCoordsRequired)
	}
	q.Lat, q.Lon = lat, lon

	q.Hours = parseHours(c.Query("hours"))
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		q.Timezone = tz
	}

	if err := validate.Struct(q); err != nil {
		return q, validationMessage(err)
	}
	return q, nil
}

// parseHours never rejects a request: unusable values fall back to the
// default and large ones are capped at the forecast horizon.
func parseHours(raw string) int {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil, hours <= 0:
		return meteo.DefaultHours
	case hours > maxForecastHours:
		return maxForecastHours
	default:
		return hours
	}
}

// validationMessage turns validator output into a message fit for clients.
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Lat":
			return errors.New(errLatRange)
		case "Lon":
			return errors.New(errLonRange)
		}
	}
	return errors.New(errCoordsRequired)
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func meteoHandler(service MeteoService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseMeteoQuery(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}

		coord := meteo.Coordinate{Lat: q.Lat, Lon: q.Lon}
		now := service.Now()
		reqLogger := logger.With("request_id", requestID(c))
		ctx := logging.IntoContext(c.UserContext(), reqLogger)

		merged := service.Aggregate(ctx, meteo.Query{
			Coordinate: coord,
			Hours:      q.Hours,
			Timezone:   q.Timezone,
			Now:        now,
		})
		return c.JSON(meteo.Assemble(coord, merged, now))
	}
}

func eonetHandler(source EventLister, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		evs, err := source.OpenEvents(c.UserContext(), events.DefaultEONETLimit)
		if err != nil {
			logger.Error("eonet fetch failed", "request_id", requestID(c), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"events":  []events.Event{},
				"error":   err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"events":  evs,
		})
	}
}

func eventFeedHandler(feed EventFeed, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := feed.RawEvents(c.UserContext(), events.DefaultFeedLimit)
		if err != nil {
			logger.Error("eonet feed failed", "request_id", requestID(c), "error", err)
			if errors.Is(err, upstream.ErrUpstreamStatus) || errors.Is(err, upstream.ErrCircuitOpen) {
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch NASA events"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

func firesHandler(source FireLister, clock MeteoService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fires, err := source.ActiveFires(c.UserContext())
		if err != nil {
			logger.Error("firms fetch failed", "request_id", requestID(c), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"fires":   []events.Event{},
				"error":   err.Error(),
			})
		}
		now := time.Now()
		if clock != nil {
			now = clock.Now()
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"fires":     fires,
			"count":     len(fires),
			"timestamp": now.UTC().Format(time.RFC3339),
		})
	}
}

func reverseGeocodeHandler(reverser geocode.Reverser, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lon := strings.TrimSpace(c.Query("lat")), strings.TrimSpace(c.Query("lon"))
		if lat == "" || lon == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lat and lon are required"})
		}

		body, err := reverser.Reverse(c.UserContext(), lat, lon, c.Query("lang", "es"))
		if err != nil {
			logger.Warn("reverse geocode failed", "request_id", requestID(c), "error", err)
			code := fiber.StatusInternalServerError
			var se *upstream.StatusError
			if errors.As(err, &se) {
				code = se.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": "reverse geocode failed"})
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDLocalsKey).(string); ok {
		return id
	}
	return ""
}
