package models

import (
	"errors"
	"net/http"
)

type (
	ErrorKind string // Класс ошибки
	ErrorCode string // Стабильный код ошибки
)

const (
	ValidationError    ErrorKind = "validation"
	AuthorizationError ErrorKind = "authorization"
	NotFoundError      ErrorKind = "not_found"
	ConflictError      ErrorKind = "conflict"
	UnavailableError   ErrorKind = "unavailable"
)

const (
	CodeInvalidInput            ErrorCode = "InvalidInput"
	CodeAccessDenied            ErrorCode = "AccessDenied"
	CodeNotVerified             ErrorCode = "NotVerified"
	CodeNotFound                ErrorCode = "NotFound"
	CodeDuplicateBid            ErrorCode = "DuplicateBid"
	CodeAlreadyAwarded          ErrorCode = "AlreadyAwarded"
	CodeAlreadyProcessed        ErrorCode = "AlreadyProcessed"
	CodeDuplicatePendingRequest ErrorCode = "DuplicatePendingRequest"
	CodeTenderNotOpen           ErrorCode = "TenderNotOpen"
	CodeBidTooLow               ErrorCode = "BidTooLow"
	CodeMaxBidsReached          ErrorCode = "MaxBidsReached"
	CodeInvalidTransition       ErrorCode = "InvalidTransition"
	CodeAlreadyReviewed         ErrorCode = "AlreadyReviewed"
	CodeTenderNotAwarded        ErrorCode = "TenderNotAwarded"
	CodeNoPaymentRecord         ErrorCode = "NoPaymentRecord"
	CodePaymentInProgress       ErrorCode = "PaymentInProgress"
	CodePaymentFailed           ErrorCode = "PaymentFailed"
	CodeMissingPayee            ErrorCode = "MissingPayee"
	CodeVersionConflict         ErrorCode = "VersionConflict"
	CodePersistenceUnavailable  ErrorCode = "PersistenceUnavailable"
	CodeSettlementUnavailable   ErrorCode = "SettlementUnavailable"
	CodeSettlementPending       ErrorCode = "SettlementPending"
	CodeUnauthenticated         ErrorCode = "Unauthenticated"
)

// ErrorResponse описывает ошибку с классом, кодом и сообщением.
type ErrorResponse struct {
	StatusCode int       `json:"-"`
	Kind       ErrorKind `json:"kind"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"reason"`
	Retryable  bool      `json:"retryable,omitempty"`
	Cause      error     `json:"-"`
}

// NewErrorResponse создает новую ошибку; HTTP-код выводится из класса.
func NewErrorResponse(kind ErrorKind, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusForKind(kind),
		Kind:       kind,
		Code:       code,
		Message:    message,
		Retryable:  kind == UnavailableError,
	}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap возвращает исходную ошибку хранилища или рельса.
func (e *ErrorResponse) Unwrap() error {
	return e.Cause
}

// WithCause прикрепляет исходную ошибку; в ответ клиенту она не попадает.
func (e *ErrorResponse) WithCause(err error) *ErrorResponse {
	e.Cause = err
	return e
}

// Конструкторы для часто используемых классов.

func NewValidationError(message string) *ErrorResponse {
	return NewErrorResponse(ValidationError, CodeInvalidInput, message)
}

func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(NotFoundError, CodeNotFound, message)
}

func NewConflictError(code ErrorCode, message string) *ErrorResponse {
	return NewErrorResponse(ConflictError, code, message)
}

func NewUnavailableError(code ErrorCode, message string) *ErrorResponse {
	return NewErrorResponse(UnavailableError, code, message)
}

// NewUnauthenticatedError - запрос без действительного токена.
func NewUnauthenticatedError(message string) *ErrorResponse {
	errorResponse := NewErrorResponse(AuthorizationError, CodeUnauthenticated, message)
	errorResponse.StatusCode = http.StatusUnauthorized
	return errorResponse
}

// AsErrorResponse достаёт ErrorResponse из цепочки ошибок.
func AsErrorResponse(err error) (*ErrorResponse, bool) {
	var errorResponse *ErrorResponse
	if errors.As(err, &errorResponse) {
		return errorResponse, true
	}
	return nil, false
}

// HasCode сообщает, несёт ли ошибка указанный код.
func HasCode(err error, code ErrorCode) bool {
	errorResponse, ok := AsErrorResponse(err)
	return ok && errorResponse.Code == code
}

// HasKind сообщает, относится ли ошибка к указанному классу.
func HasKind(err error, kind ErrorKind) bool {
	errorResponse, ok := AsErrorResponse(err)
	return ok && errorResponse.Kind == kind
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case ValidationError:
		return http.StatusBadRequest
	case AuthorizationError:
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case UnavailableError:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
