// Package scheduler runs the single cooperative poll loop: fetch, parse,
// classify, score, upsert, notify, then retention, then sleep.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"notamwatch/internal/classify"
	"notamwatch/internal/fetch"
	"notamwatch/internal/icaoparse"
	"notamwatch/internal/notam"
	"notamwatch/internal/notifier"
	"notamwatch/internal/score"
	"notamwatch/internal/storage"
)

// Config bundles the values the scheduler needs beyond its collaborators.
type Config struct {
	Mode                     notam.SearchMode
	AirportCodes             string
	SearchTerm               string // written as given to every SearchRun row; empty is stored as NULL
	UpdateInterval           time.Duration
	DroneKeywords            []string
	ScoreWeights             score.Weights
	PurgeExpiredAfterDays    int
	PurgeCancelledAfterDays  int
	PurgeSearchRunsAfterDays int
}

// Scheduler owns the run loop and its collaborators.
type Scheduler struct {
	cfg      Config
	fetcher  fetch.Fetcher
	store    *storage.Store
	notifier *notifier.Notifier
	logger   *log.Logger
}

// New builds a Scheduler. notif may be nil-equivalent (a Notifier whose
// URL is empty), in which case Add/Start are no-ops.
func New(cfg Config, fetcher fetch.Fetcher, store *storage.Store, notif *notifier.Notifier, logger *log.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, fetcher: fetcher, store: store, notifier: notif, logger: logger}
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Run blocks until ctx is cancelled. It runs one cycle immediately, then
// on every tick of UpdateInterval. Errors inside a cycle are logged and
// never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.notifier != nil {
		s.notifier.Start(ctx)
	}

	if err := s.runCycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// runCycle performs one full Fetch -> Dedup -> Parse -> Classify+Score ->
// Upsert -> Notifier.add pass, followed by a SearchRun audit insert and
// retention. A single poisoned record is caught and logged; it never
// aborts the cycle.
func (s *Scheduler) runCycle(ctx context.Context) error {
	cycleID := uuid.New().String()
	started := time.Now().UTC()
	s.logf("[%s] cycle starting", cycleID)

	envelopes, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		s.logf("[%s] fetch failed: %v", cycleID, err)
		envelopes = nil
	}

	var totalFetched, inserted, updated int
	for _, env := range envelopes {
		totalFetched++

		n, ok := icaoparse.Parse(env, s.logger)
		if !ok {
			continue
		}

		n.Flags = classify.Classify(n, s.cfg.DroneKeywords)
		n.PriorityScore = score.Score(n, s.cfg.ScoreWeights)

		wasInserted, err := s.store.Upsert(ctx, n)
		if err != nil {
			s.logf("[%s] upsert failed for %s (skipping record): %v", cycleID, n.ID, err)
			continue
		}
		if wasInserted {
			inserted++
		} else {
			updated++
		}

		if s.notifier != nil {
			s.notifier.Add(n)
		}
	}

	run := notam.SearchRun{
		Mode:         s.cfg.Mode,
		SearchTerm:   s.cfg.SearchTerm,
		AirportCodes: s.cfg.AirportCodes,
		TotalFetched: totalFetched,
		NewInserted:  inserted,
		Updated:      updated,
		RunAt:        started,
	}
	if _, err := s.store.InsertSearchRun(ctx, run); err != nil {
		s.logf("[%s] could not record search_run: %v", cycleID, err)
	}

	s.runRetention(ctx, cycleID)

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logf("[%s] could not compute stats: %v", cycleID, err)
	} else {
		s.logf("[%s] cycle complete: fetched=%d inserted=%d updated=%d total=%d closures=%d drone=%d restrictions=%d",
			cycleID, totalFetched, inserted, updated, stats.Total, stats.Closures, stats.DroneRelated, stats.Restrictions)
	}

	return nil
}

func (s *Scheduler) runRetention(ctx context.Context, cycleID string) {
	if n, err := s.store.PurgeExpired(ctx, s.cfg.PurgeExpiredAfterDays); err != nil {
		s.logf("[%s] purge_expired failed: %v", cycleID, err)
	} else if n > 0 {
		s.logf("[%s] purge_expired removed %d rows", cycleID, n)
	}

	if n, err := s.store.PurgeCancelled(ctx, s.cfg.PurgeCancelledAfterDays); err != nil {
		s.logf("[%s] purge_cancelled failed: %v", cycleID, err)
	} else if n > 0 {
		s.logf("[%s] purge_cancelled removed %d rows", cycleID, n)
	}

	days := s.cfg.PurgeSearchRunsAfterDays
	if days <= 0 {
		days = 90
	}
	if n, err := s.store.PurgeOldSearchRuns(ctx, days); err != nil {
		s.logf("[%s] purge_old_search_runs failed: %v", cycleID, err)
	} else if n > 0 {
		s.logf("[%s] purge_old_search_runs removed %d rows", cycleID, n)
	}
}
