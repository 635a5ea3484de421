package events

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

const DefaultFIRMSURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv"

// MaxFireRows bounds how many CSV rows are turned into events.
const MaxFireRows = 100

// ErrFIRMSKeyMissing is returned when no FIRMS map key is configured.
var ErrFIRMSKeyMissing = errors.New("NASA FIRMS API key not configured")

// FIRMSClient lists VIIRS active-fire detections worldwide for the last day.
type FIRMSClient struct {
	baseURL string
	key     string
	client  *upstream.Client
}

func NewFIRMSClient(client *upstream.Client, baseURL, key string) *FIRMSClient {
	if baseURL == "" {
		baseURL = DefaultFIRMSURL
	}
	return &FIRMSClient{baseURL: strings.TrimRight(baseURL, "/"), key: key, client: client}
}

// ActiveFires downloads the CSV and converts up to MaxFireRows rows.
func (c *FIRMSClient) ActiveFires(ctx context.Context) ([]Event, error) {
	if c.key == "" {
		return nil, ErrFIRMSKeyMissing
	}
	endpoint := fmt.Sprintf("%s/%s/VIIRS_SNPP_NRT/world/1", c.baseURL, c.key)
	var fires []Event
	_, err := c.client.GetChecked(ctx, endpoint, http.Header{"Accept": []string{"text/csv"}}, func(body []byte) error {
		var err error
		fires, err = parseFires(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fires, nil
}

func parseFires(body []byte) ([]Event, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimSpace(body)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("read firms header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	fires := make([]Event, 0, MaxFireRows)
	for rows := 0; rows < MaxFireRows; rows++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read firms row: %w", err)
		}

		latText, lonText, brightText := field(row, "latitude"), field(row, "longitude"), field(row, "brightness")
		if latText == "" || lonText == "" || brightText == "" {
			continue
		}
		lat, lon := meteo.ParseFloat(latText), meteo.ParseFloat(lonText)
		latV, latOK := lat.Get()
		lonV, lonOK := lon.Get()
		if !latOK || !lonOK {
			continue
		}

		confidenceText := field(row, "confidence")
		brightness := meteo.ParseFloat(brightText)
		confidence := meteo.ParseFloat(confidenceText)
		frp := meteo.ParseFloat(field(row, "frp"))

		fires = append(fires, Event{
			ID:          fmt.Sprintf("firms-%s-%s-%d", latText, lonText, len(fires)),
			Type:        TypeFire,
			Lat:         latV,
			Lng:         lonV,
			Description: fmt.Sprintf("Incendio activo detectado por satélite - Brillo: %sK, Confianza: %s%%", brightText, confidenceText),
			User:        "NASA FIRMS",
			Time:        parseAcquisition(field(row, "acq_date"), field(row, "acq_time")),
			Source:      "nasa-firms",
			Brightness:  &brightness,
			Confidence:  &confidence,
			FRP:         &frp,
		})
	}
	return fires, nil
}

// parseAcquisition joins acq_date (YYYY-MM-DD) and acq_time (HHMM, UTC).
func parseAcquisition(date, hhmm string) *time.Time {
	if date == "" {
		return nil
	}
	if hhmm == "" {
		hhmm = "0000"
	}
	if len(hhmm) < 4 {
		hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm
	}
	ts, err := time.ParseInLocation("2006-01-02 1504", date+" "+hhmm, time.UTC)
	if err != nil {
		return nil
	}
	return &ts
}
