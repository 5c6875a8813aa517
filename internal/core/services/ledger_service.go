package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/utils/numeric"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultListLimit = 50

// CacheInvalidator drops cached valuations after a ledger write commits.
type CacheInvalidator interface {
	InvalidateAccounts(ctx context.Context, userID string, accountIDs []string)
}

// ledgerPlan is the set of rows one phase of an operation appends, together
// with the deltas the balance guard must accept before they are written.
type ledgerPlan struct {
	rows   []domain.Transaction
	deltas []domain.BalanceDelta
}

func (p ledgerPlan) accountIDs() []string {
	ids := make([]string, 0, len(p.rows))
	for _, r := range p.rows {
		ids = append(ids, r.AccountID)
	}
	return ids
}

type ledgerService struct {
	BaseService
	txRepo      portsrepo.TransactionRepositoryWithTx
	accountRepo portsrepo.AccountReader
	assetRepo   portsrepo.AssetReader
	invalidator CacheInvalidator
	now         func() time.Time
}

// LedgerOption is a functional option for configuring the ledger service
type LedgerOption func(*ledgerService)

// WithCacheInvalidator registers the cache dropped after each committed write.
func WithCacheInvalidator(inv CacheInvalidator) LedgerOption {
	return func(s *ledgerService) {
		s.invalidator = inv
	}
}

// WithLedgerClock overrides the clock used for createdAt and reversal dates.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates a new ledger service with the provided options
func NewLedgerService(
	txRepo portsrepo.TransactionRepositoryWithTx,
	accountRepo portsrepo.AccountReader,
	assetRepo portsrepo.AssetReader,
	options ...LedgerOption,
) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		txRepo:      txRepo,
		accountRepo: accountRepo,
		assetRepo:   assetRepo,
		now:         time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// --- reads ---

func (s *ledgerService) DeriveHoldings(ctx context.Context, userID, accountID string) ([]domain.Holding, error) {
	if accountID != "" {
		if _, err := s.ownedAccount(ctx, userID, accountID); err != nil {
			return nil, err
		}
	}
	return deriveHoldings(ctx, s.txRepo, userID, accountID)
}

func deriveHoldings(ctx context.Context, reader portsrepo.TransactionReader, userID, accountID string) ([]domain.Holding, error) {
	txns, _, err := reader.FindTransactionsByUserID(ctx, userID, domain.TransactionFilter{AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for user %s: %w", userID, err)
	}
	return FoldHoldings(txns), nil
}

func (s *ledgerService) EnsureSufficientBalance(ctx context.Context, userID string, deltas []domain.BalanceDelta) error {
	return ensureSufficientBalance(ctx, s.txRepo, userID, deltas)
}

func ensureSufficientBalance(ctx context.Context, reader portsrepo.TransactionReader, userID string, deltas []domain.BalanceDelta) error {
	hasOutflow := false
	for _, d := range deltas {
		if d.Delta.IsNegative() {
			hasOutflow = true
			break
		}
	}
	if !hasOutflow {
		return nil
	}
	holdings, err := deriveHoldings(ctx, reader, userID, "")
	if err != nil {
		return err
	}
	return CheckBalance(holdings, deltas)
}

func (s *ledgerService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, fmt.Errorf("%w: transaction %s belongs to another user", apperrors.ErrForbidden, transactionID)
	}
	return txn, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if err := s.ValidateRequest(params); err != nil {
		return nil, err
	}
	if params.AccountID != "" {
		if _, err := s.ownedAccount(ctx, userID, params.AccountID); err != nil {
			return nil, err
		}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	filter := domain.TransactionFilter{
		AccountID: params.AccountID,
		AssetID:   params.AssetID,
		Limit:     limit,
		NextToken: params.NextToken,
	}
	for _, t := range params.Types {
		tt := domain.TransactionType(strings.ToUpper(t))
		if !tt.IsValid() {
			return nil, apperrors.NewValidationError("type", "unknown transaction type "+t)
		}
		filter.Types = append(filter.Types, tt)
	}
	if params.From != nil {
		from := time.UnixMilli(*params.From).UTC()
		filter.From = &from
	}
	if params.To != nil {
		to := time.UnixMilli(*params.To).UTC()
		if filter.From != nil && to.Before(*filter.From) {
			return nil, apperrors.NewValidationError("to", "must not be before from")
		}
		filter.To = &to
	}
	txns, next, err := s.txRepo.FindTransactionsByUserID(ctx, userID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("user_id", userID))
		return nil, err
	}
	return &dto.ListTransactionsResponse{Transactions: dto.ToTransactionResponses(txns), NextToken: next}, nil
}

// --- writes ---

func (s *ledgerService) CreateTransaction(ctx context.Context, userID string, req dto.CreateTransactionRequest) (*domain.Transaction, error) {
	logger := s.GetLogger(ctx)
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	if !req.TransactionType.IsValid() {
		return nil, apperrors.NewValidationError("transactionType", "unknown transaction type "+string(req.TransactionType))
	}

	account, err := s.ownedAccount(ctx, userID, req.AccountID)
	if err != nil {
		return nil, err
	}
	asset, err := s.assetRepo.FindAssetByID(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if err := checkAccountAllows(account, asset); err != nil {
		return nil, err
	}

	quantity, err := signedQuantity(req.TransactionType, req.Quantity)
	if err != nil {
		return nil, err
	}

	paymentAssetID, paymentQuantity, err := s.resolvePayment(ctx, asset, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	primary := domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          userID,
		AccountID:       account.AccountID,
		AssetID:         asset.AssetID,
		TransactionType: req.TransactionType,
		Quantity:        quantity,
		PaymentAssetID:  &paymentAssetID,
		PaymentQuantity: &paymentQuantity,
		TotalAmount:     paymentQuantity,
		ExchangeRate:    req.ExchangeRate,
		TransactionDate: time.UnixMilli(req.TransactionDate).UTC(),
		Notes:           req.Notes,
		CreatedAt:       now,
	}
	plan := ledgerPlan{
		rows:   []domain.Transaction{primary},
		deltas: negativeDelta(account.AccountID, asset.AssetID, quantity),
	}

	if req.FeeQuantity != nil {
		feeAssetID := paymentAssetID
		if req.FeeAssetID != nil {
			feeAssetID = *req.FeeAssetID
		}
		fee, err := s.feeRow(ctx, account, feeAssetID, *req.FeeQuantity, primary)
		if err != nil {
			return nil, err
		}
		plan.rows = append(plan.rows, fee)
		plan.deltas = append(plan.deltas, negativeDelta(fee.AccountID, fee.AssetID, fee.Quantity)...)
	}

	if err := s.commit(ctx, userID, plan); err != nil {
		logger.Error("Failed to create transaction", slog.String("error", err.Error()), slog.String("account_id", account.AccountID))
		return nil, err
	}
	logger.Info("Transaction created",
		slog.String("transaction_id", primary.TransactionID),
		slog.String("type", string(primary.TransactionType)),
		slog.Int("rows", len(plan.rows)))
	return &primary, nil
}

func (s *ledgerService) AdjustTransaction(ctx context.Context, userID, transactionID string, req dto.AdjustTransactionRequest) (*domain.Transaction, error) {
	logger := s.GetLogger(ctx)
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	if req.Quantity.IsZero() {
		return nil, apperrors.BusinessRule("adjusted quantity must not be zero")
	}

	original, err := s.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if original.IsCorrection() {
		return nil, fmt.Errorf("%w: transaction %s is a correction and cannot be adjusted", apperrors.ErrConflict, transactionID)
	}

	adjust := domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          userID,
		AccountID:       original.AccountID,
		AssetID:         original.AssetID,
		TransactionType: original.TransactionType,
		CorrectionType:  correction(domain.CorrectionAdjust),
		ReferenceTxID:   &original.TransactionID,
		Quantity:        req.Quantity,
		PaymentAssetID:  original.PaymentAssetID,
		PaymentQuantity: original.PaymentQuantity,
		TotalAmount:     original.TotalAmount,
		ExchangeRate:    original.ExchangeRate,
		TransactionDate: original.TransactionDate,
		Notes:           req.Notes,
		CreatedAt:       s.now(),
	}
	if req.PaymentQuantity != nil {
		adjust.PaymentQuantity = req.PaymentQuantity
		adjust.TotalAmount = *req.PaymentQuantity
	}
	if req.ExchangeRate != nil {
		adjust.ExchangeRate = req.ExchangeRate
	}
	if req.TransactionDate != nil {
		adjust.TransactionDate = time.UnixMilli(*req.TransactionDate).UTC()
	}

	plan := ledgerPlan{
		rows:   []domain.Transaction{adjust},
		deltas: negativeDelta(adjust.AccountID, adjust.AssetID, adjust.Quantity),
	}
	err = s.runLocked(ctx, userID, plan.accountIDs(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		reversed, err := isReversed(ctx, tx, original.TransactionID)
		if err != nil {
			return err
		}
		if reversed {
			return fmt.Errorf("%w: transaction %s has been reversed", apperrors.ErrConflict, original.TransactionID)
		}
		return applyPlan(ctx, tx, userID, plan)
	})
	if err != nil {
		logger.Error("Failed to adjust transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return nil, err
	}
	logger.Info("Transaction adjusted", slog.String("transaction_id", transactionID), slog.String("adjustment_id", adjust.TransactionID))
	return &adjust, nil
}

func (s *ledgerService) ReverseTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	logger := s.GetLogger(ctx)

	target, err := s.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if target.IsCorrection() {
		return nil, fmt.Errorf("%w: transaction %s is a correction and cannot be reversed", apperrors.ErrConflict, transactionID)
	}

	// Dependent rows may live in other accounts (the incoming leg of a
	// transfer), so every touched account is locked before re-reading them.
	dependents, err := s.txRepo.FindTransactionsByReferenceID(ctx, target.TransactionID)
	if err != nil {
		return nil, err
	}
	lockIDs := []string{target.AccountID}
	for _, d := range dependents {
		lockIDs = append(lockIDs, d.AccountID)
	}

	var targetReversal domain.Transaction
	err = s.runLocked(ctx, userID, lockIDs, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		children, err := tx.FindTransactionsByReferenceID(ctx, target.TransactionID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if c.IsCorrectionOf(domain.CorrectionReverse) {
				return fmt.Errorf("%w: transaction %s is already reversed", apperrors.ErrConflict, target.TransactionID)
			}
		}

		items := []domain.Transaction{*target}
		for _, c := range children {
			if c.IsCorrection() || c.UserID != userID {
				continue
			}
			reversed, err := isReversed(ctx, tx, c.TransactionID)
			if err != nil {
				return err
			}
			if !reversed {
				items = append(items, c)
			}
		}

		now := s.now()
		var plan ledgerPlan
		for i, item := range items {
			rev := reversalOf(item, now)
			if i == 0 {
				targetReversal = rev
			}
			plan.rows = append(plan.rows, rev)
			plan.deltas = append(plan.deltas, negativeDelta(rev.AccountID, rev.AssetID, rev.Quantity)...)
		}
		return applyPlan(ctx, tx, userID, plan)
	})
	if err != nil {
		logger.Error("Failed to reverse transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return nil, err
	}
	logger.Info("Transaction reversed", slog.String("transaction_id", transactionID), slog.String("reversal_id", targetReversal.TransactionID))
	return &targetReversal, nil
}

func (s *ledgerService) Transfer(ctx context.Context, userID string, req dto.TransferRequest) (*domain.Transaction, error) {
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	from, to, err := s.ownedAccountPair(ctx, userID, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, err
	}
	asset, err := s.assetRepo.FindAssetByID(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planTransfer(ctx, userID, from, to, asset, req.Quantity, req.FeeQuantity, time.UnixMilli(req.TransactionDate).UTC(), req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, userID, plan); err != nil {
		s.LogError(ctx, err, "Failed to transfer", slog.String("from_account_id", from.AccountID), slog.String("to_account_id", to.AccountID))
		return nil, err
	}
	s.LogInfo(ctx, "Transfer booked", slog.String("transaction_id", plan.rows[0].TransactionID))
	return &plan.rows[0], nil
}

func (s *ledgerService) Exchange(ctx context.Context, userID string, req dto.ExchangeRequest) (*domain.Transaction, error) {
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	toAccountID := req.ToAccountID
	if toAccountID == "" {
		toAccountID = req.FromAccountID
	}
	from, err := s.ownedAccount(ctx, userID, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	to := from
	if toAccountID != from.AccountID {
		if to, err = s.ownedAccount(ctx, userID, toAccountID); err != nil {
			return nil, err
		}
	}
	plan, err := s.planExchange(ctx, userID, exchangeInput{
		from:         from,
		to:           to,
		fromAssetID:  req.FromAssetID,
		toAssetID:    req.ToAssetID,
		fromQuantity: req.FromQuantity,
		toQuantity:   req.ToQuantity,
		fee:          req.FeeQuantity,
		feeAssetID:   req.FeeAssetID,
		rate:         req.ExchangeRate,
		date:         time.UnixMilli(req.TransactionDate).UTC(),
		notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, userID, plan); err != nil {
		s.LogError(ctx, err, "Failed to exchange", slog.String("from_account_id", from.AccountID))
		return nil, err
	}
	s.LogInfo(ctx, "Exchange booked", slog.String("transaction_id", plan.rows[0].TransactionID))
	return &plan.rows[0], nil
}

func (s *ledgerService) Move(ctx context.Context, userID string, req dto.MoveRequest) (*domain.Transaction, error) {
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	toAssetID := req.ToAssetID
	if toAssetID == "" {
		toAssetID = req.FromAssetID
	}

	if toAssetID == req.FromAssetID {
		return s.Transfer(ctx, userID, dto.TransferRequest{
			FromAccountID:   req.FromAccountID,
			ToAccountID:     req.ToAccountID,
			AssetID:         req.FromAssetID,
			Quantity:        req.FromQuantity,
			FeeQuantity:     req.FeeQuantity,
			TransactionDate: req.TransactionDate,
			Notes:           req.Notes,
		})
	}

	if req.ToQuantity == nil {
		return nil, apperrors.NewValidationError("toQuantity", "required when the assets differ")
	}
	from, to, err := s.ownedAccountPair(ctx, userID, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, err
	}

	if from.Platform.Type == to.Platform.Type {
		return s.Exchange(ctx, userID, dto.ExchangeRequest{
			FromAccountID:   req.FromAccountID,
			ToAccountID:     req.ToAccountID,
			FromAssetID:     req.FromAssetID,
			ToAssetID:       toAssetID,
			FromQuantity:    req.FromQuantity,
			ToQuantity:      *req.ToQuantity,
			FeeQuantity:     req.FeeQuantity,
			ExchangeRate:    req.ExchangeRate,
			TransactionDate: req.TransactionDate,
			Notes:           req.Notes,
		})
	}

	// Cross-platform conversion: exchange inside the source account, then
	// transfer the proceeds. Both phases share one database transaction.
	date := time.UnixMilli(req.TransactionDate).UTC()
	exchange, err := s.planExchange(ctx, userID, exchangeInput{
		from:         from,
		to:           from,
		fromAssetID:  req.FromAssetID,
		toAssetID:    toAssetID,
		fromQuantity: req.FromQuantity,
		toQuantity:   *req.ToQuantity,
		fee:          req.FeeQuantity,
		rate:         req.ExchangeRate,
		date:         date,
		notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}
	toAsset, err := s.assetRepo.FindAssetByID(ctx, toAssetID)
	if err != nil {
		return nil, err
	}
	transfer, err := s.planTransfer(ctx, userID, from, to, toAsset, *req.ToQuantity, nil, date, req.Notes)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, userID, exchange, transfer); err != nil {
		s.LogError(ctx, err, "Failed to move", slog.String("from_account_id", from.AccountID), slog.String("to_account_id", to.AccountID))
		return nil, err
	}
	s.LogInfo(ctx, "Move booked",
		slog.String("exchange_id", exchange.rows[0].TransactionID),
		slog.String("transfer_id", transfer.rows[0].TransactionID))
	return &exchange.rows[0], nil
}

// --- planning ---

func (s *ledgerService) planTransfer(
	ctx context.Context,
	userID string,
	from, to *domain.Account,
	asset *domain.Asset,
	quantity decimal.Decimal,
	feeQuantity *decimal.Decimal,
	date time.Time,
	notes string,
) (ledgerPlan, error) {
	if !quantity.IsPositive() {
		return ledgerPlan{}, apperrors.BusinessRule("transfer quantity must be positive")
	}
	if from.AccountID == to.AccountID {
		return ledgerPlan{}, apperrors.BusinessRule("cannot transfer to the same account")
	}
	if err := checkAccountAllows(from, asset); err != nil {
		return ledgerPlan{}, err
	}
	if err := checkAccountAllows(to, asset); err != nil {
		return ledgerPlan{}, err
	}

	outType, inType := domain.TransferOut, domain.TransferIn
	if from.Platform.Type != to.Platform.Type {
		outType, inType = domain.Withdraw, domain.Deposit
	}

	now := s.now()
	out := domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          userID,
		AccountID:       from.AccountID,
		AssetID:         asset.AssetID,
		TransactionType: outType,
		Quantity:        quantity.Neg(),
		PaymentAssetID:  &asset.AssetID,
		PaymentQuantity: numeric.Ptr(quantity),
		TotalAmount:     quantity,
		TransactionDate: date,
		Notes:           notes,
		CreatedAt:       now,
	}
	plan := ledgerPlan{
		rows:   []domain.Transaction{out},
		deltas: negativeDelta(from.AccountID, asset.AssetID, out.Quantity),
	}

	if feeQuantity != nil {
		fee, err := s.feeRow(ctx, from, asset.AssetID, *feeQuantity, out)
		if err != nil {
			return ledgerPlan{}, err
		}
		plan.rows = append(plan.rows, fee)
		plan.deltas = append(plan.deltas, negativeDelta(fee.AccountID, fee.AssetID, fee.Quantity)...)
	}

	in := out
	in.TransactionID = uuid.NewString()
	in.AccountID = to.AccountID
	in.TransactionType = inType
	in.Quantity = quantity
	in.ReferenceTxID = &out.TransactionID
	plan.rows = append(plan.rows, in)
	return plan, nil
}

type exchangeInput struct {
	from, to     *domain.Account
	fromAssetID  string
	toAssetID    string
	fromQuantity decimal.Decimal
	toQuantity   decimal.Decimal
	fee          *decimal.Decimal
	feeAssetID   *string
	rate         *decimal.Decimal
	date         time.Time
	notes        string
}

func (s *ledgerService) planExchange(ctx context.Context, userID string, in exchangeInput) (ledgerPlan, error) {
	if in.fromAssetID == in.toAssetID {
		return ledgerPlan{}, apperrors.BusinessRule("cannot exchange an asset for itself")
	}
	if !in.fromQuantity.IsPositive() || !in.toQuantity.IsPositive() {
		return ledgerPlan{}, apperrors.BusinessRule("exchange quantities must be positive")
	}
	assets, err := s.assetRepo.FindAssetsByIDs(ctx, []string{in.fromAssetID, in.toAssetID})
	if err != nil {
		return ledgerPlan{}, err
	}
	fromAsset, ok := assets[in.fromAssetID]
	if !ok {
		return ledgerPlan{}, fmt.Errorf("%w: asset %s", apperrors.ErrNotFound, in.fromAssetID)
	}
	toAsset, ok := assets[in.toAssetID]
	if !ok {
		return ledgerPlan{}, fmt.Errorf("%w: asset %s", apperrors.ErrNotFound, in.toAssetID)
	}
	if err := checkAccountAllows(in.from, &fromAsset); err != nil {
		return ledgerPlan{}, err
	}
	if err := checkAccountAllows(in.to, &toAsset); err != nil {
		return ledgerPlan{}, err
	}

	rate := in.rate
	if rate == nil {
		rate = numeric.Ptr(in.toQuantity.DivRound(in.fromQuantity, 18))
	}

	now := s.now()
	sell := domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          userID,
		AccountID:       in.from.AccountID,
		AssetID:         fromAsset.AssetID,
		TransactionType: domain.Sell,
		Quantity:        in.fromQuantity.Neg(),
		PaymentAssetID:  &toAsset.AssetID,
		PaymentQuantity: numeric.Ptr(in.toQuantity),
		TotalAmount:     in.toQuantity,
		ExchangeRate:    rate,
		TransactionDate: in.date,
		Notes:           in.notes,
		CreatedAt:       now,
	}
	plan := ledgerPlan{
		rows:   []domain.Transaction{sell},
		deltas: negativeDelta(sell.AccountID, sell.AssetID, sell.Quantity),
	}

	if in.fee != nil {
		feeAssetID := fromAsset.AssetID
		if in.feeAssetID != nil {
			feeAssetID = *in.feeAssetID
		}
		fee, err := s.feeRow(ctx, in.from, feeAssetID, *in.fee, sell)
		if err != nil {
			return ledgerPlan{}, err
		}
		plan.rows = append(plan.rows, fee)
		plan.deltas = append(plan.deltas, negativeDelta(fee.AccountID, fee.AssetID, fee.Quantity)...)
	}

	buyType := domain.Buy
	if in.to.IsBank() {
		buyType = domain.Deposit
	}
	buy := domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          userID,
		AccountID:       in.to.AccountID,
		AssetID:         toAsset.AssetID,
		TransactionType: buyType,
		ReferenceTxID:   &sell.TransactionID,
		Quantity:        in.toQuantity,
		PaymentAssetID:  &fromAsset.AssetID,
		PaymentQuantity: numeric.Ptr(in.fromQuantity),
		TotalAmount:     in.fromQuantity,
		ExchangeRate:    rate,
		TransactionDate: in.date,
		Notes:           in.notes,
		CreatedAt:       now,
	}
	plan.rows = append(plan.rows, buy)
	return plan, nil
}

// feeRow builds the FEE outflow attached to parent. Fees are always outflows.
func (s *ledgerService) feeRow(ctx context.Context, account *domain.Account, feeAssetID string, quantity decimal.Decimal, parent domain.Transaction) (domain.Transaction, error) {
	if !quantity.IsPositive() {
		return domain.Transaction{}, apperrors.BusinessRule("fee quantity must be positive")
	}
	feeAsset, err := s.assetRepo.FindAssetByID(ctx, feeAssetID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := checkAccountAllows(account, feeAsset); err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          parent.UserID,
		AccountID:       account.AccountID,
		AssetID:         feeAsset.AssetID,
		TransactionType: domain.Fee,
		ReferenceTxID:   &parent.TransactionID,
		Quantity:        quantity.Neg(),
		PaymentAssetID:  &feeAsset.AssetID,
		PaymentQuantity: numeric.Ptr(quantity),
		TotalAmount:     quantity,
		TransactionDate: parent.TransactionDate,
		Notes:           "Fee",
		CreatedAt:       parent.CreatedAt,
	}, nil
}

// resolvePayment applies the consideration rules: fiat rows pay in kind with
// an equal quantity; non-fiat rows must name a payment asset.
func (s *ledgerService) resolvePayment(ctx context.Context, asset *domain.Asset, req dto.CreateTransactionRequest) (string, decimal.Decimal, error) {
	if asset.IsFiat() {
		paymentAssetID := asset.AssetID
		if req.PaymentAssetID != nil {
			paymentAssetID = *req.PaymentAssetID
		}
		if req.PaymentQuantity != nil && !req.PaymentQuantity.Equal(req.Quantity) {
			return "", decimal.Zero, apperrors.BusinessRule("payment quantity must equal quantity for fiat transactions")
		}
		return paymentAssetID, req.Quantity, nil
	}

	if req.PaymentAssetID == nil {
		return "", decimal.Zero, apperrors.NewValidationError("paymentAssetID", "required for non-fiat assets")
	}
	if req.PaymentQuantity == nil {
		return "", decimal.Zero, apperrors.NewValidationError("paymentQuantity", "required for non-fiat assets")
	}
	if req.PaymentQuantity.IsNegative() {
		return "", decimal.Zero, apperrors.BusinessRule("payment quantity must not be negative")
	}
	if _, err := s.assetRepo.FindAssetByID(ctx, *req.PaymentAssetID); err != nil {
		return "", decimal.Zero, err
	}
	return *req.PaymentAssetID, *req.PaymentQuantity, nil
}

// --- persistence ---

// commit locks every account touched by the plans, then guards and writes each
// plan in order inside one database transaction. Later plans see the rows of
// earlier ones.
func (s *ledgerService) commit(ctx context.Context, userID string, plans ...ledgerPlan) error {
	var accountIDs []string
	for _, p := range plans {
		accountIDs = append(accountIDs, p.accountIDs()...)
	}
	return s.runLocked(ctx, userID, accountIDs, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		for _, p := range plans {
			if err := applyPlan(ctx, tx, userID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ledgerService) runLocked(ctx context.Context, userID string, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	ids := uniqueSorted(accountIDs)
	err := s.txRepo.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if err := tx.LockAccounts(ctx, ids); err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		return fn(ctx, tx)
	})
	if err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateAccounts(ctx, userID, ids)
	}
	return nil
}

func applyPlan(ctx context.Context, tx portsrepo.LedgerTx, userID string, plan ledgerPlan) error {
	if err := ensureSufficientBalance(ctx, tx, userID, plan.deltas); err != nil {
		return err
	}
	for _, row := range plan.rows {
		if err := tx.SaveTransaction(ctx, row); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", row.TransactionID, err)
		}
	}
	return nil
}

// --- helpers ---

func (s *ledgerService) ownedAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("%w: account %s belongs to another user", apperrors.ErrForbidden, accountID)
	}
	return account, nil
}

func (s *ledgerService) ownedAccountPair(ctx context.Context, userID, fromID, toID string) (*domain.Account, *domain.Account, error) {
	if fromID == toID {
		return nil, nil, apperrors.BusinessRule("source and destination accounts must differ")
	}
	from, err := s.ownedAccount(ctx, userID, fromID)
	if err != nil {
		return nil, nil, err
	}
	to, err := s.ownedAccount(ctx, userID, toID)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func checkAccountAllows(account *domain.Account, asset *domain.Asset) error {
	if account.AllowsAsset(*asset) {
		return nil
	}
	return apperrors.BusinessRule("bank account %s only accepts %s, got %s", account.AccountID, account.CurrencyCode, asset.Symbol)
}

// signedQuantity turns a positive request quantity into the stored signed
// quantity. Types without a conventional sign keep the caller's sign.
func signedQuantity(t domain.TransactionType, q decimal.Decimal) (decimal.Decimal, error) {
	sign, ok := domain.ConventionalSign(t)
	if !ok {
		if q.IsZero() {
			return decimal.Zero, apperrors.BusinessRule("quantity must not be zero")
		}
		return q, nil
	}
	if !q.IsPositive() {
		return decimal.Zero, apperrors.BusinessRule("quantity must be positive")
	}
	if sign < 0 {
		return q.Neg(), nil
	}
	return q, nil
}

func isReversed(ctx context.Context, reader portsrepo.TransactionReader, transactionID string) (bool, error) {
	children, err := reader.FindTransactionsByReferenceID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, c := range children {
		if c.IsCorrectionOf(domain.CorrectionReverse) && c.References(transactionID) {
			return true, nil
		}
	}
	return false, nil
}

// reversalOf negates the effective quantity of item so that folding
// {item, reversal} nets to zero regardless of how item was signed on input.
func reversalOf(item domain.Transaction, now time.Time) domain.Transaction {
	return domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          item.UserID,
		AccountID:       item.AccountID,
		AssetID:         item.AssetID,
		TransactionType: item.TransactionType,
		CorrectionType:  correction(domain.CorrectionReverse),
		ReferenceTxID:   &item.TransactionID,
		Quantity:        NormalizedQuantity(item).Neg(),
		PaymentAssetID:  item.PaymentAssetID,
		PaymentQuantity: numeric.NegPtr(item.PaymentQuantity),
		TotalAmount:     item.TotalAmount.Neg(),
		ExchangeRate:    item.ExchangeRate,
		TransactionDate: now,
		Notes:           "Reversal of " + item.TransactionID,
		CreatedAt:       now,
	}
}

func correction(c domain.CorrectionType) *domain.CorrectionType {
	return &c
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
