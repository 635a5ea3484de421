// Package geocode resolves coordinates to place names.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/meteo-aggregation/internal/common"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org/reverse"

var errInvalidJSON = errors.New("nominatim: invalid json body")

// Reverser turns a coordinate into a JSON place description.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon, lang string) (json.RawMessage, error)
}

// Nominatim proxies OpenStreetMap's reverse endpoint, identifying the
// application with a User-Agent and contact email as its usage policy asks.
type Nominatim struct {
	baseURL string
	contact string
	client  *upstream.Client
}

func NewNominatim(client *upstream.Client, baseURL, contact string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	contact = common.FirstNonEmpty(contact, "contact@example.com")
	return &Nominatim{baseURL: baseURL, contact: contact, client: client}
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon, lang string) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", lat)
	values.Set("lon", lon)
	values.Set("zoom", "10")
	values.Set("addressdetails", "1")
	values.Set("email", n.contact)

	header := http.Header{}
	header.Set("Accept-Language", common.FirstNonEmpty(lang, "es"))
	header.Set("User-Agent", fmt.Sprintf("FullCleanAirs/1.0 (%s)", n.contact))

	body, err := n.client.GetChecked(ctx, fmt.Sprintf("%s?%s", n.baseURL, values.Encode()), header, checkJSON)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Google reverse-geocodes through the Google Geocoding API. The geocoder
// package keys requests off a package-level variable, so calls are serialized.
type Google struct {
	mu     sync.Mutex
	apiKey string
}

func NewGoogle(apiKey string) *Google {
	return &Google{apiKey: apiKey}
}

type googlePlace struct {
	DisplayName string        `json:"display_name"`
	Lat         string        `json:"lat"`
	Lon         string        `json:"lon"`
	Address     googleAddress `json:"address"`
}

type googleAddress struct {
	Road     string `json:"road,omitempty"`
	City     string `json:"city,omitempty"`
	County   string `json:"county,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// Reverse answers in the same top-level shape as Nominatim so clients need no branching.
func (g *Google) Reverse(ctx context.Context, lat, lon, _ string) (json.RawMessage, error) {
	latV, err := parseCoord(lat)
	if err != nil {
		return nil, err
	}
	lonV, err := parseCoord(lon)
	if err != nil {
		return nil, err
	}

	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		geocoder.ApiKey = g.apiKey
		addrs, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: latV, Longitude: lonV})
		done <- result{addrs: addrs, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("google reverse geocode: %w", res.err)
	}
	if len(res.addrs) == 0 {
		return nil, fmt.Errorf("google reverse geocode: no results")
	}

	a := res.addrs[0]
	body, err := json.Marshal(googlePlace{
		DisplayName: a.FormattedAddress,
		Lat:         lat,
		Lon:         lon,
		Address: googleAddress{
			Road:     a.Street,
			City:     a.City,
			County:   a.County,
			State:    a.State,
			Country:  a.Country,
			Postcode: a.PostalCode,
		},
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func checkJSON(body []byte) error {
	if !json.Valid(body) {
		return errInvalidJSON
	}
	return nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	return v, nil
}

var (
	_ Reverser = (*Nominatim)(nil)
	_ Reverser = (*Google)(nil)
)
