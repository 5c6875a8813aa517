package services_test

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portscache "github.com/SscSPs/portfolio_ledger/internal/core/ports/cache"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
)

// --- in-memory ledger ---

type fakeLedger struct {
	mu        sync.Mutex
	rows      []domain.Transaction
	locked    [][]string
	saveErrOn int // fail the n-th SaveTransaction call (1-based), 0 disables
	saves     int
}

var _ portsrepo.TransactionRepositoryWithTx = (*fakeLedger)(nil)

func (f *fakeLedger) seed(rows ...domain.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
}

func (f *fakeLedger) all() []domain.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Transaction(nil), f.rows...)
}

func (f *fakeLedger) FindTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findByID(f.rows, id)
}

func (f *fakeLedger) FindTransactionsByUserID(_ context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filterRows(f.rows, userID, filter), nil, nil
}

func (f *fakeLedger) FindTransactionsByReferenceID(_ context.Context, id string) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byReference(f.rows, id), nil
}

func (f *fakeLedger) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	f.mu.Lock()
	tx := &fakeLedgerTx{parent: f, rows: append([]domain.Transaction(nil), f.rows...)}
	f.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = tx.rows
	if tx.lockedIDs != nil {
		f.locked = append(f.locked, tx.lockedIDs)
	}
	return nil
}

type fakeLedgerTx struct {
	parent    *fakeLedger
	rows      []domain.Transaction
	lockedIDs []string
}

func (t *fakeLedgerTx) FindTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	return findByID(t.rows, id)
}

func (t *fakeLedgerTx) FindTransactionsByUserID(_ context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, *string, error) {
	return filterRows(t.rows, userID, filter), nil, nil
}

func (t *fakeLedgerTx) FindTransactionsByReferenceID(_ context.Context, id string) ([]domain.Transaction, error) {
	return byReference(t.rows, id), nil
}

func (t *fakeLedgerTx) SaveTransaction(_ context.Context, txn domain.Transaction) error {
	t.parent.mu.Lock()
	t.parent.saves++
	n := t.parent.saves
	failOn := t.parent.saveErrOn
	t.parent.mu.Unlock()
	if failOn > 0 && n == failOn {
		return fmt.Errorf("insert failed")
	}
	t.rows = append(t.rows, txn)
	return nil
}

func (t *fakeLedgerTx) LockAccounts(_ context.Context, ids []string) error {
	t.lockedIDs = append([]string(nil), ids...)
	return nil
}

func findByID(rows []domain.Transaction, id string) (*domain.Transaction, error) {
	for i := range rows {
		if rows[i].TransactionID == id {
			txn := rows[i]
			return &txn, nil
		}
	}
	return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, id)
}

func filterRows(rows []domain.Transaction, userID string, filter domain.TransactionFilter) []domain.Transaction {
	var out []domain.Transaction
	for _, r := range rows {
		if r.UserID != userID {
			continue
		}
		if filter.AccountID != "" && r.AccountID != filter.AccountID {
			continue
		}
		if filter.AssetID != "" && r.AssetID != filter.AssetID {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, r.TransactionType) {
			continue
		}
		if filter.From != nil && r.TransactionDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !r.TransactionDate.Before(*filter.To) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TransactionDate.Before(out[j].TransactionDate) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func containsType(types []domain.TransactionType, t domain.TransactionType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func byReference(rows []domain.Transaction, id string) []domain.Transaction {
	var out []domain.Transaction
	for _, r := range rows {
		if r.References(id) {
			out = append(out, r)
		}
	}
	return out
}

// --- in-memory catalog ---

type fakeCatalog struct {
	accounts map[string]domain.Account
	assets   map[string]domain.Asset
	users    map[string]domain.User
}

var (
	_ portsrepo.AccountReader = (*fakeCatalog)(nil)
	_ portsrepo.AssetReader   = (*fakeCatalog)(nil)
	_ portsrepo.UserReader    = (*fakeCatalog)(nil)
)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		accounts: map[string]domain.Account{},
		assets:   map[string]domain.Asset{},
		users:    map[string]domain.User{},
	}
}

func (c *fakeCatalog) addAccount(a domain.Account) *fakeCatalog {
	c.accounts[a.AccountID] = a
	return c
}

func (c *fakeCatalog) addAsset(a domain.Asset) *fakeCatalog {
	c.assets[a.AssetID] = a
	return c
}

func (c *fakeCatalog) addUser(u domain.User) *fakeCatalog {
	c.users[u.UserID] = u
	return c
}

func (c *fakeCatalog) FindAccountByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := c.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
	}
	return &a, nil
}

func (c *fakeCatalog) FindAccountsByIDs(_ context.Context, ids []string) (map[string]domain.Account, error) {
	out := map[string]domain.Account{}
	for _, id := range ids {
		if a, ok := c.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindAssetByID(_ context.Context, id string) (*domain.Asset, error) {
	a, ok := c.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", apperrors.ErrNotFound, id)
	}
	return &a, nil
}

func (c *fakeCatalog) FindAssetsByIDs(_ context.Context, ids []string) (map[string]domain.Asset, error) {
	out := map[string]domain.Asset{}
	for _, id := range ids {
		if a, ok := c.assets[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindAssetBySymbol(_ context.Context, symbol string) (*domain.Asset, error) {
	for _, a := range c.assets {
		if a.Symbol == symbol {
			a := a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: asset %s", apperrors.ErrNotFound, symbol)
}

func (c *fakeCatalog) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := c.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	return &u, nil
}

func (c *fakeCatalog) ListUserIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(c.users))
	for id := range c.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// --- in-memory snapshot store ---

type fakeSnapshots struct {
	mu    sync.Mutex
	byKey map[string]domain.PortfolioSnapshot
	seq   int
}

var _ portsrepo.SnapshotRepositoryFacade = (*fakeSnapshots)(nil)

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{byKey: map[string]domain.PortfolioSnapshot{}}
}

func (f *fakeSnapshots) FindSnapshotByDate(_ context.Context, userID, date string) (*domain.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byKey[userID+"|"+date]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %s", apperrors.ErrNotFound, date)
	}
	return &s, nil
}

func (f *fakeSnapshots) ListSnapshots(_ context.Context, userID, from, to string) ([]domain.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PortfolioSnapshot
	for _, s := range f.byKey {
		if s.UserID != userID {
			continue
		}
		if from != "" && s.SnapshotDate < from {
			continue
		}
		if to != "" && s.SnapshotDate > to {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate < out[j].SnapshotDate })
	return out, nil
}

func (f *fakeSnapshots) CreateOrReplace(_ context.Context, snap domain.PortfolioSnapshot) (*domain.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := snap.UserID + "|" + snap.SnapshotDate
	if existing, ok := f.byKey[key]; ok {
		snap.SnapshotID = existing.SnapshotID
		snap.CreatedAt = existing.CreatedAt
	} else {
		f.seq++
		snap.SnapshotID = fmt.Sprintf("snap-%d", f.seq)
	}
	for i := range snap.Items {
		snap.Items[i].SnapshotID = snap.SnapshotID
	}
	f.byKey[key] = snap
	return &snap, nil
}

func (f *fakeSnapshots) put(s domain.PortfolioSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[s.UserID+"|"+s.SnapshotDate] = s
}

func (f *fakeSnapshots) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

// --- in-memory cache ---

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

var _ portscache.Store = (*fakeCache)(nil)

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) SetEx(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *fakeCache) DeleteByPattern(_ context.Context, pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	n := 0
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *fakeCache) has(key string) bool {
	_, ok := c.Get(context.Background(), key)
	return ok
}

// --- recording invalidator ---

type recordingInvalidator struct {
	calls [][]string
}

func (r *recordingInvalidator) InvalidateAccounts(_ context.Context, _ string, accountIDs []string) {
	r.calls = append(r.calls, accountIDs)
}
