package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler handles HTTP requests that read or mutate the transaction ledger.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls}
}

// RegisterLedgerRoutes registers transaction, transfer, exchange, move and holdings routes.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	txns := rg.Group("/transactions")
	{
		txns.POST("", h.createTransaction)
		txns.GET("", h.listTransactions)
		txns.GET("/:transactionID", h.getTransaction)
		txns.POST("/:transactionID/adjust", h.adjustTransaction)
		txns.POST("/:transactionID/reverse", h.reverseTransaction)
	}

	rg.POST("/transfers", h.transfer)
	rg.POST("/exchanges", h.exchange)
	rg.POST("/moves", h.move)
	rg.GET("/holdings", h.listHoldings)
}

// createTransaction godoc
// @Summary Record a ledger transaction
// @Description Books a DEPOSIT, WITHDRAW, BUY, SELL, FEE, INTEREST or DIVIDEND row. A FEE row is added when feeQuantity is set.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transaction body dto.CreateTransactionRequest true "Transaction details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account belongs to another user"
// @Failure 422 {object} map[string]string "Insufficient funds or business rule violation"
// @Failure 500 {object} map[string]string "Failed to create transaction"
// @Security BearerAuth
// @Router /transactions [post]
func (h *ledgerHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logger.Info("Received request to create transaction",
		slog.String("account_id", req.AccountID),
		slog.String("asset_id", req.AssetID),
		slog.String("transaction_type", string(req.TransactionType)))

	txn, err := h.ledgerService.CreateTransaction(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "create transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// getTransaction godoc
// @Summary Get a transaction
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{transactionID} [get]
func (h *ledgerHandler) getTransaction(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	txn, err := h.ledgerService.GetTransaction(c.Request.Context(), userID, c.Param("transactionID"))
	if err != nil {
		respondError(c, err, "get transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List transactions
// @Description Lists the user's ledger rows, newest first, with token-based pagination.
// @Tags transactions
// @Produce  json
// @Param   accountID query string false "Filter by account"
// @Param   assetID query string false "Filter by asset"
// @Param   limit query int false "Page size (default 20, max 500)"
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Security BearerAuth
// @Router /transactions [get]
func (h *ledgerHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	resp, err := h.ledgerService.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// adjustTransaction godoc
// @Summary Adjust a transaction
// @Description Books an ADJUST row that declares new values for the original row. Quantity is signed.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   adjustment body dto.AdjustTransactionRequest true "New values"
// @Success 201 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction already reversed"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /transactions/{transactionID}/adjust [post]
func (h *ledgerHandler) adjustTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AdjustTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AdjustTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	txnID := c.Param("transactionID")
	logger.Info("Received request to adjust transaction", slog.String("transaction_id", txnID))
	txn, err := h.ledgerService.AdjustTransaction(c.Request.Context(), userID, txnID, req)
	if err != nil {
		respondError(c, err, "adjust transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// reverseTransaction godoc
// @Summary Reverse a transaction
// @Description Negates the transaction together with its dependent rows (fees, payment legs).
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 201 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction already reversed"
// @Security BearerAuth
// @Router /transactions/{transactionID}/reverse [post]
func (h *ledgerHandler) reverseTransaction(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	txnID := c.Param("transactionID")
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Received request to reverse transaction", slog.String("transaction_id", txnID))

	txn, err := h.ledgerService.ReverseTransaction(c.Request.Context(), userID, txnID)
	if err != nil {
		respondError(c, err, "reverse transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// transfer godoc
// @Summary Transfer an asset between accounts
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferRequest true "Transfer details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 422 {object} map[string]string "Insufficient funds or currency mismatch"
// @Security BearerAuth
// @Router /transfers [post]
func (h *ledgerHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Transfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logger.Info("Received request to transfer",
		slog.String("from_account_id", req.FromAccountID),
		slog.String("to_account_id", req.ToAccountID),
		slog.String("asset_id", req.AssetID))
	txn, err := h.ledgerService.Transfer(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "transfer")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// exchange godoc
// @Summary Exchange one asset for another
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   exchange body dto.ExchangeRequest true "Exchange details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /exchanges [post]
func (h *ledgerHandler) exchange(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Exchange", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logger.Info("Received request to exchange",
		slog.String("from_asset_id", req.FromAssetID),
		slog.String("to_asset_id", req.ToAssetID))
	txn, err := h.ledgerService.Exchange(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "exchange")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// move godoc
// @Summary Move value between accounts and assets
// @Description Routes to a transfer, an exchange, or an exchange followed by a transfer, in one database transaction.
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   move body dto.MoveRequest true "Move details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /moves [post]
func (h *ledgerHandler) move(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Move", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	txn, err := h.ledgerService.Move(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "move")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// listHoldings godoc
// @Summary List derived holdings
// @Description Folds the ledger into non-zero (account, asset) quantities.
// @Tags holdings
// @Produce  json
// @Param   accountID query string false "Restrict to one account"
// @Success 200 {array} dto.HoldingResponse
// @Security BearerAuth
// @Router /holdings [get]
func (h *ledgerHandler) listHoldings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	holdings, err := h.ledgerService.DeriveHoldings(c.Request.Context(), userID, c.Query("accountID"))
	if err != nil {
		respondError(c, err, "derive holdings")
		return
	}
	c.JSON(http.StatusOK, dto.ToHoldingResponses(holdings))
}
