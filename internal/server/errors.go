package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	"github.com/smallbiznis/messledger/internal/datewindow"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
	"github.com/smallbiznis/messledger/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

var validationSentinels = []error{
	ErrInvalidRequest,

	messdomain.ErrInvalidMess,
	messdomain.ErrInvalidMember,
	messdomain.ErrInvalidName,
	messdomain.ErrInvalidStatus,
	messdomain.ErrInvalidMonth,

	mealdomain.ErrInvalidMess,
	mealdomain.ErrInvalidMember,
	mealdomain.ErrInvalidDate,
	mealdomain.ErrInvalidMealType,
	mealdomain.ErrInvalidDelta,
	mealdomain.ErrInvalidMonth,

	ledgerdomain.ErrInvalidMess,
	ledgerdomain.ErrInvalidMember,
	ledgerdomain.ErrInvalidDate,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrNonPositiveAmount,
	ledgerdomain.ErrInvalidDescription,
	ledgerdomain.ErrInvalidClientRef,
	ledgerdomain.ErrInvalidMonth,

	summarydomain.ErrInvalidMonth,
	summarydomain.ErrInvalidMember,

	subscriptiondomain.ErrInvalidMess,
	subscriptiondomain.ErrInvalidID,
	subscriptiondomain.ErrInvalidStartDate,
	subscriptiondomain.ErrInvalidEndDate,
	subscriptiondomain.ErrInvalidMonth,

	archivedomain.ErrInvalidMess,
	archivedomain.ErrInvalidMonth,
}

var notFoundSentinels = []error{
	ErrNotFound,
	messdomain.ErrMessNotFound,
	messdomain.ErrMemberNotFound,
	subscriptiondomain.ErrNotFound,
	archivedomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var conflictSentinels = []error{
	ErrConflict,
	messdomain.ErrMessSuspended,
	messdomain.ErrMemberInactive,
	subscriptiondomain.ErrOverlappingWindow,
	archivedomain.ErrMonthAhead,
	archivedomain.ErrMonthClosed,
	archivedomain.ErrMonthNotEnded,
	archivedomain.ErrMonthAdvanced,
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Date errors carry their own code; they also match the domain
	// invalid_date sentinels, so they are handled first.
	var dateErr *datewindow.Error
	if errors.As(err, &dateErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    dateErr.Code,
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "date",
					Code:    dateErr.Code,
					Message: dateErrorMessage(dateErr.Code),
				},
			},
		}
	}

	if sentinel := matchSentinel(err, validationSentinels); sentinel != nil {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if sentinel := matchSentinel(err, notFoundSentinels); sentinel != nil {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    notFoundCode(sentinel),
			Message: "not found",
		}
	}

	if sentinel := matchSentinel(err, conflictSentinels); sentinel != nil {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    sentinel.Error(),
			Message: conflictMessage(sentinel.Error()),
		}
	}

	switch {
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    "duplicate",
			Message: "conflict",
		}
	case errors.Is(err, mealdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Code:    mealdomain.ErrRateLimited.Error(),
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the request
// log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func matchSentinel(err error, sentinels []error) error {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func notFoundCode(sentinel error) string {
	if errors.Is(sentinel, gorm.ErrRecordNotFound) {
		return ErrNotFound.Error()
	}
	return sentinel.Error()
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "non_positive_amount":
		return "amount"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "non_positive_amount":
		return "amount must be greater than zero"
	default:
		return "invalid value"
	}
}

func dateErrorMessage(code string) string {
	switch code {
	case datewindow.CodeMalformed:
		return "date must be formatted as YYYY-MM-DD"
	case datewindow.CodeInFuture:
		return "date is in the future"
	case datewindow.CodeOutsideWindow:
		return "date is outside the subscription window"
	case datewindow.CodeBeforeWindow:
		return "date is before the editable window"
	default:
		return "invalid date"
	}
}

func conflictMessage(code string) string {
	switch code {
	case messdomain.ErrMessSuspended.Error():
		return "mess is suspended"
	case messdomain.ErrMemberInactive.Error():
		return "member is inactive"
	case subscriptiondomain.ErrOverlappingWindow.Error():
		return "subscription window overlaps an active window"
	case archivedomain.ErrMonthAhead.Error():
		return "month has not been opened yet"
	case archivedomain.ErrMonthClosed.Error():
		return "month is already closed"
	case archivedomain.ErrMonthNotEnded.Error():
		return "month has not ended yet"
	case archivedomain.ErrMonthAdvanced.Error():
		return "month was advanced concurrently"
	default:
		return "conflict"
	}
}
