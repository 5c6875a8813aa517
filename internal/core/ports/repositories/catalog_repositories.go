package repositories

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// AccountReader defines read operations for account data.
type AccountReader interface {
	// FindAccountByID retrieves an account with its platform.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts keyed by id.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
}

// AssetReader defines read operations for asset data.
type AssetReader interface {
	FindAssetByID(ctx context.Context, assetID string) (*domain.Asset, error)
	FindAssetsByIDs(ctx context.Context, assetIDs []string) (map[string]domain.Asset, error)
	FindAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error)
}

// UserReader defines read operations for user data.
type UserReader interface {
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// ListUserIDs returns the id of every active user, for background jobs.
	ListUserIDs(ctx context.Context) ([]string, error)
}
