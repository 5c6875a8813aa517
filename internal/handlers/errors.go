package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto a status code and a JSON body.
// Internal failures are logged and answered with a generic message.
func respondError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		logger.Warn("Validation failed", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation error", "fields": vErr.Fields})
		return
	}

	var fundsErr *apperrors.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		logger.Warn("Insufficient funds", slog.String("action", action), slog.String("account_id", fundsErr.AccountID), slog.String("asset_id", fundsErr.AssetID))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"accountID": fundsErr.AccountID,
			"assetID":   fundsErr.AssetID,
			"available": fundsErr.Available,
			"requested": fundsErr.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Invalid request", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Conflict", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, apperrors.ErrBusinessLogic):
		logger.Warn("Business rule violated", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code >= 400 {
		if appErr.Code >= 500 {
			logger.Error("Request failed", slog.String("action", action), slog.Int("status", appErr.Code), slog.String("error", err.Error()))
		}
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	logger.Error("Unexpected error", slog.String("action", action), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
}

// requireUserID reads the authenticated user from the context, answering 401 when absent.
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == "" {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}
