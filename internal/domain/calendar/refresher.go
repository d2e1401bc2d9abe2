package calendar

import (
	"context"
	"time"

	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/fsnotify/fsnotify"
)

// HolidayStore persists the last successfully fetched holiday set so that a
// restarted process can serve business-day answers before the first feed
// fetch completes.  The redis implementation lives in
// internal/infrastructure/database/redis.
type HolidayStore interface {
	SaveHolidays(ctx context.Context, jurisdiction Jurisdiction, holidays []time.Time) error
	LoadHolidays(ctx context.Context, jurisdiction Jurisdiction) ([]time.Time, error)
}

// Refresher keeps a Calendar's holiday set current from a HolidaySource.
// Fetch failures are logged and the previous set is retained; the feed being
// down is never fatal.
type Refresher struct {
	cal      *Calendar
	source   HolidaySource
	store    HolidayStore // optional
	interval time.Duration
	logger   logging.Logger
}

// NewRefresher constructs a Refresher.  store may be nil, in which case the
// last-known-good set lives only in process memory.
func NewRefresher(cal *Calendar, source HolidaySource, store HolidayStore, interval time.Duration, logger logging.Logger) *Refresher {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Refresher{
		cal:      cal,
		source:   source,
		store:    store,
		interval: interval,
		logger:   logger.Named("calendar.refresher"),
	}
}

// Prime loads the stored last-known-good set, if any, before the first fetch.
// Call once at startup.
func (r *Refresher) Prime(ctx context.Context) {
	if r.store == nil {
		return
	}
	holidays, err := r.store.LoadHolidays(ctx, r.cal.Jurisdiction())
	if err != nil {
		r.logger.Warn("failed to load stored holiday set",
			logging.String("jurisdiction", string(r.cal.Jurisdiction())),
			logging.Err(err))
		return
	}
	if len(holidays) > 0 {
		r.cal.SetHolidays(holidays)
		r.logger.Info("primed holiday set from store",
			logging.String("jurisdiction", string(r.cal.Jurisdiction())),
			logging.Int("holidays", len(holidays)))
	}
}

// RefreshOnce fetches the holiday set once.  On failure the calendar keeps
// its current set and the error is returned for the caller to log or count.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	holidays, err := r.source.Holidays(ctx, r.cal.Jurisdiction())
	if err != nil {
		r.logger.Warn("holiday refresh failed, keeping last-known set",
			logging.String("jurisdiction", string(r.cal.Jurisdiction())),
			logging.Err(err))
		return err
	}

	r.cal.SetHolidays(holidays)
	if r.store != nil {
		if err := r.store.SaveHolidays(ctx, r.cal.Jurisdiction(), holidays); err != nil {
			r.logger.Warn("failed to persist holiday set", logging.Err(err))
		}
	}

	r.logger.Debug("holiday set refreshed",
		logging.String("jurisdiction", string(r.cal.Jurisdiction())),
		logging.Int("holidays", len(holidays)))
	return nil
}

// Run refreshes immediately and then on every interval tick until ctx is
// cancelled.  Intended to be started as a goroutine from the worker daemon.
func (r *Refresher) Run(ctx context.Context) {
	_ = r.RefreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.RefreshOnce(ctx)
		}
	}
}

// WatchFile reloads the calendar whenever the FileSource's backing file
// changes on disk.  Blocks until ctx is cancelled or the watcher fails.
func (r *Refresher) WatchFile(ctx context.Context, src *FileSource) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(src.Path()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			_ = r.RefreshOnce(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("holiday file watcher error", logging.Err(err))
		}
	}
}
