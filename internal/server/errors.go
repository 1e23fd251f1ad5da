package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	authdomain "github.com/mietwerk/mietwerk/internal/auth/domain"
	"github.com/mietwerk/mietwerk/internal/authorization"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	"github.com/mietwerk/mietwerk/internal/invoice/calc"
	invoicedomain "github.com/mietwerk/mietwerk/internal/invoice/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
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

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, persondomain.ErrInvalidEmail),
		errors.Is(err, persondomain.ErrInvalidName),
		errors.Is(err, persondomain.ErrInvalidPassword),
		errors.Is(err, persondomain.ErrWrongPassword),
		errors.Is(err, buildingdomain.ErrInvalidAddress),
		errors.Is(err, buildingdomain.ErrInvalidFlat),
		errors.Is(err, buildingdomain.ErrInvalidMeter),
		errors.Is(err, buildingdomain.ErrInvalidCost),
		errors.Is(err, flatdomain.ErrInvalidResidents),
		errors.Is(err, flatdomain.ErrNoTenantGiven),
		errors.Is(err, meterdomain.ErrReadingNotMonotonic),
		errors.Is(err, calc.ErrZeroDenominator),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, persondomain.ErrPersonNotFound),
		errors.Is(err, buildingdomain.ErrBuildingNotFound),
		errors.Is(err, flatdomain.ErrFlatNotFound),
		errors.Is(err, flatdomain.ErrFlatNotInBuilding),
		errors.Is(err, meterdomain.ErrMeterNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, persondomain.ErrEmailTaken),
		errors.Is(err, persondomain.ErrOwnsBuildings),
		errors.Is(err, buildingdomain.ErrBuildingExists),
		errors.Is(err, buildingdomain.ErrMeterNumberTaken),
		errors.Is(err, invoicedomain.ErrNoTenant):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger with a coarse error
// bucket and the sentinel code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "internal", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "denied", payload.Type
	default:
		return "client", payload.Type
	}
}
