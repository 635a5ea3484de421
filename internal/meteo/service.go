package meteo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/meteo-aggregation/internal/logging"
)

var errSourceDisabled = errors.New("source not configured")

// Service fans a query out to the four sources and merges what comes back.
type Service struct {
	fetchers Fetchers
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(fetchers Fetchers, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		fetchers: fetchers,
		logger:   logger.With("component", "meteo.service"),
		now:      time.Now,
	}
}

// WithClock replaces the wall clock used when a query carries no Now.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// Collect runs all four fetches concurrently and waits for every one of them.
// A failing source never cancels or fails the others.
func (s *Service) Collect(ctx context.Context, q Query) Inputs {
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	if q.Hours <= 0 {
		q.Hours = DefaultHours
	}
	if q.Timezone == "" {
		q.Timezone = DefaultTimezone
	}

	logger := logging.FromContext(ctx, s.logger)
	var (
		g  errgroup.Group
		in Inputs
	)
	fetchInto(ctx, &g, logger, s.fetchers.Power, q, &in.Power)
	fetchInto(ctx, &g, logger, s.fetchers.Forecast, q, &in.Forecast)
	fetchInto(ctx, &g, logger, s.fetchers.AirQuality, q, &in.AirQuality)
	fetchInto(ctx, &g, logger, s.fetchers.Pollen, q, &in.Pollen)
	_ = g.Wait()

	logger.Debug("sources collected",
		"lat", q.Coordinate.Lat,
		"lon", q.Coordinate.Lon,
		string(SourcePower), in.Power.OK(),
		string(SourceForecast), in.Forecast.OK(),
		string(SourceAirQuality), in.AirQuality.OK(),
		string(SourcePollen), in.Pollen.OK(),
	)
	return in
}

// Aggregate collects from every source and merges the results.
func (s *Service) Aggregate(ctx context.Context, q Query) MergedReading {
	return Merge(s.Collect(ctx, q))
}

func fetchInto[T any](ctx context.Context, g *errgroup.Group, logger *slog.Logger, f Fetcher[T], q Query, out *Result[T]) {
	if f == nil {
		*out = Result[T]{Err: errSourceDisabled}
		return
	}
	g.Go(func() error {
		r, err := f.Fetch(ctx, q)
		if err != nil {
			logger.Warn("source fetch failed", "source", f.Name(), "error", err)
			// Keep the zero reading so a failed source stays all-null.
			*out = Result[T]{Err: err}
			return nil
		}
		*out = Result[T]{Reading: r}
		return nil
	})
}
