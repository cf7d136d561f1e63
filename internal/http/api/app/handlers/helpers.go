// Package handlers implements the loader and action endpoints behind the
// app routes.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spoonjoy/spoonjoy/internal/models"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "sj_session"

// ContextUserKey is the gin context key holding the authenticated user.
const ContextUserKey = "currentUser"

// currentUser returns the session user loaded by the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// intentOf reads the dispatch field from the submitted form.
func intentOf(c *gin.Context) string {
	return strings.TrimSpace(c.PostForm("intent"))
}

// respondUnknownIntent answers an unrecognized intent with an inert null
// body. Consumers tolerate this by convention.
func respondUnknownIntent(c *gin.Context) {
	c.JSON(http.StatusOK, nil)
}

// respondFieldErrors answers a validation failure with a field-keyed map.
func respondFieldErrors(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
}

// respondDomainError answers a domain conflict with a named error code.
func respondDomainError(c *gin.Context, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code})
}

func respondNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func respondForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}

// respondInternal hides the original error from the client.
func respondInternal(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// isUniqueViolation reports whether err is a unique-constraint violation in
// either supported dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
