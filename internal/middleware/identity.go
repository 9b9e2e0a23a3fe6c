// Package middleware decodes the caller identity supplied by the upstream gateway.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/service"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	callerKey = "caller"
)

// Identity requires both identity headers and stores the Caller on the context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.GetHeader(HeaderUserID), 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing or invalid " + HeaderUserID + " header"})
			return
		}
		role := service.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if !role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing or invalid " + HeaderUserRole + " header"})
			return
		}
		c.Set(callerKey, service.Caller{ID: uint(id), Role: role})
		c.Next()
	}
}

// RequireRole rejects callers without the given role. It must run after Identity.
func RequireRole(role service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok || caller.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "This endpoint requires role " + string(role)})
			return
		}
		c.Next()
	}
}

func CallerFromContext(c *gin.Context) (service.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return service.Caller{}, false
	}
	caller, ok := v.(service.Caller)
	return caller, ok
}
