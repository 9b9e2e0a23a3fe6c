package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/middleware"
	"github.com/lshigami/quizcore/internal/service"
	"github.com/rs/zerolog/log"
)

// ParseID reads a positive numeric path parameter. On failure it writes a 400 and
// returns false.
func ParseID(ctx *gin.Context, param, label string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(param), 10, 32)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + label + " format"})
		return 0, false
	}
	return uint(id), true
}

// BindError answers a request body that failed binding or validation.
func BindError(ctx *gin.Context, op string, err error) {
	log.Warn().Err(err).Msg(op + ": Failed to bind JSON")
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotEligible),
		errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrAlreadyDisputed),
		errors.Is(err, service.ErrNotInProgress),
		errors.Is(err, service.ErrReportNotPending),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidAnswer),
		errors.Is(err, service.ErrInvalidQuiz),
		errors.Is(err, service.ErrEmptyReason):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the service error with its mapped status. Internal errors are
// logged and their details withheld.
func RespondError(ctx *gin.Context, op, message string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(op + ": Service error")
		ctx.JSON(status, dto.ErrorResponse{Message: message})
		return
	}
	log.Warn().Err(err).Int("status", status).Msg(op + ": Request rejected")
	ctx.JSON(status, dto.ErrorResponse{Message: message, Details: []string{err.Error()}})
}

// Caller returns the identity stored by the identity middleware.
func Caller(ctx *gin.Context) (service.Caller, bool) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Caller identity missing"})
	}
	return caller, ok
}
