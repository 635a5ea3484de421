package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

func testClient(name string) *upstream.Client {
	return upstream.New(name, upstream.Options{HTTPClient: &http.Client{Timeout: 2 * time.Second}})
}

const eonetBody = `{
	"events": [
		{
			"id": "EONET_1",
			"title": "Wildfire near Valparaíso",
			"categories": [{"id": "wildfires", "title": "Wildfires"}],
			"geometry": [{"date": "2025-01-14T18:00:00Z", "type": "Point", "coordinates": [-71.6, -33.0]}]
		},
		{
			"id": "EONET_2",
			"title": "Drought",
			"categories": [{"id": "drought", "title": "Drought"}],
			"geometry": [{"date": "bad", "type": "Polygon", "coordinates": [[[10.5, 20.5], [11, 21], [10.5, 20.5]]]}]
		},
		{
			"id": "EONET_3",
			"title": "No geometry",
			"categories": [{"id": "floods", "title": "Floods"}],
			"geometry": []
		}
	]
}`

func TestOpenEvents(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(eonetBody))
	}))
	t.Cleanup(srv.Close)

	evs, err := NewEONETClient(testClient("eonet"), srv.URL).OpenEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "limit=20&status=open", query.Load())
	require.Len(t, evs, 2)

	first := evs[0]
	require.Equal(t, "nasa-EONET_1", first.ID)
	require.Equal(t, TypeFire, first.Type)
	require.Equal(t, -33.0, first.Lat)
	require.Equal(t, -71.6, first.Lng)
	require.Equal(t, "NASA EONET", first.User)
	require.Equal(t, "nasa", first.Source)
	require.NotNil(t, first.Time)
	require.Equal(t, time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC), *first.Time)
	require.Zero(t, first.Confirmations)

	second := evs[1]
	require.Equal(t, TypePollution, second.Type)
	require.Equal(t, 20.5, second.Lat)
	require.Equal(t, 10.5, second.Lng)
	require.Nil(t, second.Time)
}

func TestEventType(t *testing.T) {
	cases := []struct {
		id, title string
		want      Type
	}{
		{"wildfires", "Wildfires", TypeFire},
		{"severeStorms", "Severe Storms", TypeSmoke},
		{"volcanoes", "Volcanoes", TypeFire},
		{"dustHaze", "Dust and Haze", TypePollution},
		{"floods", "Floods", TypePollution},
		{"seaLakeIce", "Sea and Lake Ice", TypeGood},
		{"snow", "Snow", TypeGood},
		{"other", "Forest fire complex", TypeFire},
		{"other", "Smoke plume", TypeSmoke},
		{"other", "Unknown", TypePollution},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, eventType(tc.id, tc.title), tc.title)
	}
}

func TestOpenEventsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewEONETClient(testClient("eonet"), srv.URL).OpenEvents(context.Background(), 5)
	require.ErrorIs(t, err, upstream.ErrUpstreamStatus)
}

const firmsCSV = `latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight,brightness
-33.1,-71.2,330.5,0.4,0.4,2025-01-15,0342,N,VIIRS,n,2.0NRT,290.1,5.2,N,330.5
,-70.0,320.0,0.4,0.4,2025-01-15,0342,N,VIIRS,n,2.0NRT,290.1,1.0,N,320.0
-20.5,-60.25,,0.4,0.4,2025-01-15,0342,N,VIIRS,n,2.0NRT,290.1,1.0,N,
10,20,310,0.4,0.4,2025-01-15,15,N,VIIRS,h,2.0NRT,290.1,x,D,310
`

func TestParseFires(t *testing.T) {
	fires, err := parseFires([]byte(firmsCSV))
	require.NoError(t, err)
	require.Len(t, fires, 2)

	f := fires[0]
	require.Equal(t, "firms--33.1--71.2-0", f.ID)
	require.Equal(t, TypeFire, f.Type)
	require.Equal(t, -33.1, f.Lat)
	require.Equal(t, -71.2, f.Lng)
	require.Equal(t, "NASA FIRMS", f.User)
	require.Equal(t, "nasa-firms", f.Source)
	require.Equal(t, "Incendio activo detectado por satélite - Brillo: 330.5K, Confianza: n%", f.Description)
	require.Equal(t, time.Date(2025, 1, 15, 3, 42, 0, 0, time.UTC), *f.Time)
	require.NotNil(t, f.FRP)
	require.Equal(t, "5.2", f.FRP.String())

	g := fires[1]
	require.Equal(t, "firms-10-20-1", g.ID)
	require.Equal(t, time.Date(2025, 1, 15, 0, 15, 0, 0, time.UTC), *g.Time)
	require.False(t, g.FRP.Valid())
}

func TestParseFiresLimitsRows(t *testing.T) {
	body := "latitude,longitude,brightness\n"
	for i := 0; i < MaxFireRows+50; i++ {
		body += "1,2,300\n"
	}
	fires, err := parseFires([]byte(body))
	require.NoError(t, err)
	require.Len(t, fires, MaxFireRows)
}

func TestParseFiresEmpty(t *testing.T) {
	fires, err := parseFires(nil)
	require.NoError(t, err)
	require.Empty(t, fires)
}

func TestActiveFires(t *testing.T) {
	var path, accept atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		accept.Store(r.Header.Get("Accept"))
		_, _ = w.Write([]byte(firmsCSV))
	}))
	t.Cleanup(srv.Close)

	fires, err := NewFIRMSClient(testClient("firms"), srv.URL+"/api/area/csv", "KEY123").ActiveFires(context.Background())
	require.NoError(t, err)
	require.Len(t, fires, 2)
	require.Equal(t, "/api/area/csv/KEY123/VIIRS_SNPP_NRT/world/1", path.Load())
	require.Equal(t, "text/csv", accept.Load())
}

func TestActiveFiresWithoutKey(t *testing.T) {
	_, err := NewFIRMSClient(testClient("firms"), "", "").ActiveFires(context.Background())
	require.ErrorIs(t, err, ErrFIRMSKeyMissing)
}

func TestRawEvents(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(eonetBody))
	}))
	t.Cleanup(srv.Close)

	body, err := NewEONETClient(testClient("eonet"), srv.URL).RawEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "limit=10", query.Load())
	require.JSONEq(t, eonetBody, string(body))
}

func TestRawEventsRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewEONETClient(testClient("eonet"), srv.URL).RawEvents(context.Background(), 5)
	require.ErrorIs(t, err, errInvalidFeed)
}
