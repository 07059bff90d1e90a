package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// statusForCategory maps the closed error-category set to an HTTP status
// code (spec §7).
func statusForCategory(c models.ErrorCategory) int {
	switch c {
	case models.CategoryNetwork, models.CategoryTimeout, models.CategoryServer, models.CategoryAgent:
		return http.StatusServiceUnavailable
	case models.CategoryNotFound:
		return http.StatusNotFound
	case models.CategoryConflict:
		return http.StatusConflict
	case models.CategoryValidation:
		return http.StatusUnprocessableEntity
	case models.CategoryAuthentication:
		return http.StatusUnauthorized
	case models.CategoryAuthorisation:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body a request-triggered handler returns;
// async-operation failures never surface this way (spec §7 — those only
// ever reach the user through Job/NodeState/LinkState/Lab fields).
func respondError(c *gin.Context, err error) {
	if errors.Is(err, apierrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if errors.Is(err, apierrors.ErrAlreadyExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
		return
	}
	if errors.Is(err, apierrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var ce *apierrors.CategorizedError
	if errors.As(err, &ce) {
		c.JSON(statusForCategory(ce.Category), gin.H{"error": ce.Message, "category": ce.Category, "details": ce.Details})
		return
	}

	slog.Error("api: unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
