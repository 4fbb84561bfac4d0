// Command notamwatch wires the configuration, fetcher, store, notifier
// and scheduler together and runs the poll loop until signalled to stop.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"notamwatch/internal/config"
	"notamwatch/internal/fetch"
	"notamwatch/internal/notam"
	"notamwatch/internal/notifier"
	"notamwatch/internal/score"
	"notamwatch/internal/scheduler"
	"notamwatch/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Printf("fatal: %v", err)
		return 1
	}
	logger.Printf("notamwatch %s starting, mode=%s", cfg.Version, cfg.Mode())

	store, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Printf("fatal: %v", err)
		return 1
	}
	defer store.Close()

	var fetcher fetch.Fetcher
	var mode notam.SearchMode
	if cfg.Mode() == "aerodrome" {
		mode = notam.ModeAerodrome
		fetcher = fetch.NewAerodromeFetcher(cfg.NotamAPIURL, cfg.NotamAPIKey, cfg.Airports, cfg.MinRequestDelay, cfg.MaxRequestDelay, logger)
	} else {
		mode = notam.ModeSearch
		fetcher = fetch.NewFreeTextFetcher(cfg.NotamAPIURL, cfg.NotamAPIKey, cfg.SearchTerms, cfg.MinRequestDelay, cfg.MaxRequestDelay, logger)
	}

	notif := notifier.New(notifier.Config{
		URL:            cfg.NtfyURL,
		DigestInterval: time.Duration(cfg.NtfyDigestInterval) * time.Second,
		MinScore:       cfg.NtfyMinScore,
		MaxDigestItems: cfg.NtfyMaxDigestItems,
	}, logger)

	sched := scheduler.New(scheduler.Config{
		Mode:                     mode,
		AirportCodes:             strings.Join(cfg.Airports, ","),
		SearchTerm:               strings.Join(cfg.SearchTerms, ","),
		UpdateInterval:           time.Duration(cfg.UpdateIntervalSeconds) * time.Second,
		DroneKeywords:            cfg.DroneKeywords,
		ScoreWeights:             score.Weights{Closure: cfg.ClosureScore, Drone: cfg.DroneScore, Restriction: cfg.RestrictionScore},
		PurgeExpiredAfterDays:    cfg.PurgeExpiredAfterDays,
		PurgeCancelledAfterDays:  cfg.PurgeCancelledAfterDays,
		PurgeSearchRunsAfterDays: 90,
	}, fetcher, store, notif, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Run(ctx); err != nil {
		logger.Printf("fatal: %v", err)
		return 1
	}
	logger.Printf("notamwatch shut down cleanly")
	return 0
}
