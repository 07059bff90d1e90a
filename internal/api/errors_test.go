package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netlab-io/controller/internal/models"
)

func TestStatusForCategory(t *testing.T) {
	cases := map[models.ErrorCategory]int{
		models.CategoryNetwork:        http.StatusServiceUnavailable,
		models.CategoryTimeout:        http.StatusServiceUnavailable,
		models.CategoryServer:         http.StatusServiceUnavailable,
		models.CategoryAgent:          http.StatusServiceUnavailable,
		models.CategoryNotFound:       http.StatusNotFound,
		models.CategoryConflict:       http.StatusConflict,
		models.CategoryValidation:     http.StatusUnprocessableEntity,
		models.CategoryAuthentication: http.StatusUnauthorized,
		models.CategoryAuthorisation:  http.StatusForbidden,
		models.CategoryUnknown:        http.StatusInternalServerError,
	}
	for cat, want := range cases {
		assert.Equal(t, want, statusForCategory(cat), "category %s", cat)
	}
}
