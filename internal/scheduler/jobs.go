package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
)

// SnapshotSyncJob stores today's snapshot for every user.
type SnapshotSyncJob struct {
	users     portsrepo.UserReader
	snapshots portssvc.SnapshotSvc
}

func NewSnapshotSyncJob(users portsrepo.UserReader, snapshots portssvc.SnapshotSvc) *SnapshotSyncJob {
	return &SnapshotSyncJob{users: users, snapshots: snapshots}
}

func (j *SnapshotSyncJob) Name() string { return "snapshot-sync" }

// Run snapshots users one by one. A failing user is logged and skipped.
func (j *SnapshotSyncJob) Run(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	userIDs, err := j.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	failed := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap, err := j.snapshots.CreateOrReplaceTodaySnapshot(ctx, userID)
		if err != nil {
			failed++
			logger.Warn("Snapshot failed", slog.String("user_id", userID), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("Snapshot stored", slog.String("user_id", userID), slog.String("total_value_usd", snap.TotalValueUsd.String()))
	}

	logger.Info("Snapshot sync finished", slog.Int("users", len(userIDs)), slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d user snapshots failed", failed, len(userIDs))
	}
	return nil
}

// PriceSyncJob refreshes and persists the quote of every asset anyone holds.
type PriceSyncJob struct {
	users    portsrepo.UserReader
	assets   portsrepo.AssetReader
	holdings portssvc.HoldingsDeriverSvc
	prices   portssvc.PriceSvc
}

func NewPriceSyncJob(users portsrepo.UserReader, assets portsrepo.AssetReader, holdings portssvc.HoldingsDeriverSvc, prices portssvc.PriceSvc) *PriceSyncJob {
	return &PriceSyncJob{users: users, assets: assets, holdings: holdings, prices: prices}
}

func (j *PriceSyncJob) Name() string { return "price-sync" }

func (j *PriceSyncJob) Run(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	userIDs, err := j.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	seen := make(map[string]struct{})
	var assetIDs []string
	for _, userID := range userIDs {
		held, err := j.holdings.DeriveHoldings(ctx, userID, "")
		if err != nil {
			logger.Warn("Failed to derive holdings", slog.String("user_id", userID), slog.String("error", err.Error()))
			continue
		}
		for _, h := range held {
			if _, ok := seen[h.AssetID]; ok {
				continue
			}
			seen[h.AssetID] = struct{}{}
			assetIDs = append(assetIDs, h.AssetID)
		}
	}
	if len(assetIDs) == 0 {
		logger.Info("No held assets to price")
		return nil
	}

	byID, err := j.assets.FindAssetsByIDs(ctx, assetIDs)
	if err != nil {
		return fmt.Errorf("failed to load assets: %w", err)
	}
	assets := make([]domain.Asset, 0, len(byID))
	for _, id := range assetIDs {
		if a, ok := byID[id]; ok {
			assets = append(assets, a)
		}
	}

	priced := j.prices.SyncPrices(ctx, assets)
	logger.Info("Price sync finished", slog.Int("assets", len(assets)), slog.Int("priced", priced))
	return nil
}
