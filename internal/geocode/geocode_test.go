package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

type seen struct {
	mu     sync.Mutex
	req    *http.Request
	header http.Header
}

func (s *seen) store(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req = r
	s.header = r.Header.Clone()
}

func nominatimServer(t *testing.T, status int, body string, s *seen) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.store(r)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient() *upstream.Client {
	return upstream.New("nominatim", upstream.Options{HTTPClient: &http.Client{Timeout: 2 * time.Second}})
}

func TestNominatimReverse(t *testing.T) {
	var s seen
	srv := nominatimServer(t, http.StatusOK, `{"display_name":"Santiago, Chile","address":{"city":"Santiago"}}`, &s)

	body, err := NewNominatim(testClient(), srv.URL, "ops@example.org").Reverse(context.Background(), "-33.45", "-70.66", "")
	require.NoError(t, err)
	require.JSONEq(t, `{"display_name":"Santiago, Chile","address":{"city":"Santiago"}}`, string(body))

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.req.URL.Query()
	require.Equal(t, "json", q.Get("format"))
	require.Equal(t, "-33.45", q.Get("lat"))
	require.Equal(t, "-70.66", q.Get("lon"))
	require.Equal(t, "10", q.Get("zoom"))
	require.Equal(t, "1", q.Get("addressdetails"))
	require.Equal(t, "ops@example.org", q.Get("email"))
	require.Equal(t, "es", s.header.Get("Accept-Language"))
	require.Equal(t, "FullCleanAirs/1.0 (ops@example.org)", s.header.Get("User-Agent"))
}

func TestNominatimUpstreamStatus(t *testing.T) {
	var s seen
	srv := nominatimServer(t, http.StatusTooManyRequests, `slow down`, &s)

	_, err := NewNominatim(testClient(), srv.URL, "").Reverse(context.Background(), "1", "2", "en")
	var se *upstream.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestNominatimInvalidBody(t *testing.T) {
	var s seen
	srv := nominatimServer(t, http.StatusOK, `<html>`, &s)

	_, err := NewNominatim(testClient(), srv.URL, "").Reverse(context.Background(), "1", "2", "en")
	require.Error(t, err)
}

func TestGoogleRejectsBadCoordinates(t *testing.T) {
	_, err := NewGoogle("key").Reverse(context.Background(), "north", "2", "")
	require.Error(t, err)
}
