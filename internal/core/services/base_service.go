package services

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/go-playground/validator/v10"
)

// requestValidator checks the `validate` tags of request DTOs. Field names in
// errors follow the JSON (or form) name so clients can map them back.
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// BaseService provides common functionality for all services
type BaseService struct{}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// ValidateRequest runs struct validation and converts failures to *apperrors.ValidationError.
func (s *BaseService) ValidateRequest(req any) error {
	if err := requestValidator.Struct(req); err != nil {
		return apperrors.FromValidator(err)
	}
	return nil
}
