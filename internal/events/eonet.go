package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/meteo-aggregation/internal/common"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

const DefaultEONETURL = "https://eonet.gsfc.nasa.gov/api/v3/events"

// DefaultEONETLimit is how many open events are requested.
const DefaultEONETLimit = 20

// DefaultFeedLimit is how many events the raw feed passes through.
const DefaultFeedLimit = 10

var errInvalidFeed = errors.New("eonet: invalid json body")

// eonetTitleTypes maps EONET category titles to marker types.
var eonetTitleTypes = map[string]Type{
	"Wildfires":        TypeFire,
	"Severe Storms":    TypeSmoke,
	"Volcanoes":        TypeFire,
	"Dust and Haze":    TypePollution,
	"Floods":           TypePollution,
	"Sea and Lake Ice": TypeGood,
}

// eonetIDTypes covers categories known only by id.
var eonetIDTypes = map[string]Type{
	"drought":      TypePollution,
	"snow":         TypeGood,
	"tempExtremes": TypePollution,
	"landslides":   TypePollution,
	"manmade":      TypePollution,
}

// EONETClient lists open natural events.
type EONETClient struct {
	baseURL string
	client  *upstream.Client
}

func NewEONETClient(client *upstream.Client, baseURL string) *EONETClient {
	if baseURL == "" {
		baseURL = DefaultEONETURL
	}
	return &EONETClient{baseURL: baseURL, client: client}
}

type eonetPayload struct {
	Events []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Categories []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"categories"`
		Geometry []struct {
			Date        string          `json:"date"`
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"events"`
}

// OpenEvents returns up to limit open events that carry a usable geometry.
func (c *EONETClient) OpenEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultEONETLimit
	}
	values := url.Values{}
	values.Set("limit", strconv.Itoa(limit))
	values.Set("status", "open")

	var payload eonetPayload
	if err := c.client.GetJSON(ctx, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), &payload); err != nil {
		return nil, err
	}

	out := make([]Event, 0, len(payload.Events))
	for _, ev := range payload.Events {
		if len(ev.Geometry) == 0 {
			continue
		}
		geom := ev.Geometry[0]
		lon, lat, ok := firstPosition(geom.Coordinates)
		if !ok {
			continue
		}

		var catID, catTitle string
		if len(ev.Categories) > 0 {
			catID, catTitle = ev.Categories[0].ID, ev.Categories[0].Title
		}

		out = append(out, Event{
			ID:          "nasa-" + ev.ID,
			Type:        eventType(catID, catTitle),
			Lat:         lat,
			Lng:         lon,
			Description: ev.Title,
			User:        "NASA EONET",
			Time:        parseEventTime(geom.Date),
			Source:      "nasa",
		})
	}
	return out, nil
}

// RawEvents returns the EONET events document untouched, for clients that
// render the feed themselves.
func (c *EONETClient) RawEvents(ctx context.Context, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	values := url.Values{}
	values.Set("limit", strconv.Itoa(limit))

	body, err := c.client.GetChecked(ctx, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), nil, func(body []byte) error {
		if !json.Valid(body) {
			return errInvalidFeed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func eventType(categoryID, categoryTitle string) Type {
	if t, ok := eonetTitleTypes[categoryTitle]; ok {
		return t
	}
	if t, ok := eonetIDTypes[categoryID]; ok {
		return t
	}
	switch {
	case common.ContainsFold(categoryTitle, "fire", "volcan"):
		return TypeFire
	case common.ContainsFold(categoryTitle, "smoke"):
		return TypeSmoke
	default:
		return TypePollution
	}
}

// firstPosition extracts [lon, lat] from a Point, or the first vertex of a Polygon.
func firstPosition(raw json.RawMessage) (float64, float64, bool) {
	var point []float64
	if err := json.Unmarshal(raw, &point); err == nil && len(point) >= 2 {
		return point[0], point[1], true
	}
	var polygon [][][]float64
	if err := json.Unmarshal(raw, &polygon); err == nil && len(polygon) > 0 && len(polygon[0]) > 0 && len(polygon[0][0]) >= 2 {
		return polygon[0][0][0], polygon[0][0][1], true
	}
	return 0, 0, false
}

func parseEventTime(s string) *time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}
