package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/meteo-aggregation/internal/cache"
	"github.com/i474232898/meteo-aggregation/internal/logging"
	"github.com/i474232898/meteo-aggregation/internal/meteo"
)

const prewarmTimeout = 30 * time.Second

// Aggregator is the slice of meteo.Service the prewarm job needs.
type Aggregator interface {
	Aggregate(ctx context.Context, q meteo.Query) meteo.MergedReading
}

// Options configures the background jobs. A zero interval or empty input disables a job.
type Options struct {
	Locations       []meteo.Coordinate
	PrewarmInterval time.Duration
	Purger          cache.Purger
	PurgeInterval   time.Duration
}

// Scheduler refreshes cached upstream data for configured locations and
// sweeps expired cache entries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Aggregator
	opts      Options
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(service Aggregator, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		opts:      opts,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the configured jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	jobs := 0

	if len(s.opts.Locations) > 0 && s.opts.PrewarmInterval > 0 && s.service != nil {
		if _, err := s.scheduler.Every(s.opts.PrewarmInterval).Do(s.Prewarm); err != nil {
			return err
		}
		jobs++
	}

	if s.opts.Purger != nil && s.opts.PurgeInterval > 0 {
		if _, err := s.scheduler.Every(s.opts.PurgeInterval).Do(s.Purge); err != nil {
			return err
		}
		jobs++
	}

	if jobs == 0 {
		s.logger.Info("no jobs configured; nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "jobs", jobs)
	return nil
}

// Prewarm aggregates every configured location once, concurrently.
func (s *Scheduler) Prewarm() {
	s.logger.Debug("running prewarm job", "locations", len(s.opts.Locations))

	var wg sync.WaitGroup
	for _, loc := range s.opts.Locations {
		wg.Add(1)
		go func(loc meteo.Coordinate) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), prewarmTimeout)
			defer cancel()

			merged := s.service.Aggregate(ctx, meteo.Query{Coordinate: loc})
			if !merged.Sources.NASAPower && !merged.Sources.OpenMeteoWeather {
				s.logger.Warn("prewarm got no weather source", "lat", loc.Lat, "lon", loc.Lon)
			}
		}(loc)
	}
	wg.Wait()
	s.logger.Debug("completed prewarm job")
}

// Purge drops expired cache entries.
func (s *Scheduler) Purge() {
	if n := s.opts.Purger.Purge(); n > 0 {
		s.logger.Debug("purged expired cache entries", "count", n)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
