package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the resource belongs to a different user.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrBusinessLogic indicates a well-formed request that breaks a business rule
// (currency mismatch, non-positive quantity, insufficient balance, ...).
var ErrBusinessLogic = errors.New("business rule violation")

// ErrConflict indicates the request conflicts with the current state of a resource.
var ErrConflict = errors.New("conflict")

// ErrInternal indicates an unexpected failure.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-like status code alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Code >= 500 {
		return ErrInternal
	}
	return nil
}

// ValidationError reports field-addressable validation failures.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// FromValidator converts validator/v10 errors into a ValidationError.
// Any other error is wrapped as a plain validation failure.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fe.Tag() + "=" + fe.Param()
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientFundsError is raised by the balance guard when a negative delta
// would drive a holding below zero.
type InsufficientFundsError struct {
	AccountID string
	AssetID   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %s for asset %s: available %s, requested %s",
		e.AccountID, e.AssetID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientFundsError) Unwrap() error { return ErrBusinessLogic }

// BusinessRule wraps a message as an ErrBusinessLogic error.
func BusinessRule(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBusinessLogic, fmt.Sprintf(format, args...))
}
