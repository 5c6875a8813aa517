package main

import (
	"fmt"
	"log/slog"
	"time"

	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/scheduler"
)

const jobTick = "@every 1m"

func newScheduler(
	cfg *config.Config,
	logger *slog.Logger,
	users portsrepo.UserReader,
	assets portsrepo.AssetReader,
	holdings portssvc.HoldingsDeriverSvc,
	prices portssvc.PriceSvc,
	snapshots portssvc.SnapshotSvc,
) (*scheduler.Runner, error) {
	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	daily, err := scheduler.DailyAt(cfg.SnapshotSyncTime, loc)
	if err != nil {
		return nil, err
	}

	runner := scheduler.NewRunner(logger)
	snapshotJob := scheduler.New(scheduler.NewSnapshotSyncJob(users, snapshots), daily, scheduler.WithLogger(logger))
	priceJob := scheduler.New(scheduler.NewPriceSyncJob(users, assets, holdings, prices), scheduler.Every(cfg.PriceSyncInterval), scheduler.WithLogger(logger))

	if err := runner.Add(jobTick, snapshotJob); err != nil {
		return nil, err
	}
	if err := runner.Add(jobTick, priceJob); err != nil {
		return nil, err
	}
	return runner, nil
}
