package agentclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netlab-io/controller/internal/models"
)

func TestCategorizeHTTPStatus(t *testing.T) {
	assert.Equal(t, models.CategoryNotFound, categorizeHTTPStatus(404))
	assert.Equal(t, models.CategoryConflict, categorizeHTTPStatus(409))
	assert.Equal(t, models.CategoryValidation, categorizeHTTPStatus(422))
	assert.Equal(t, models.CategoryServer, categorizeHTTPStatus(503))
	assert.Equal(t, models.CategoryAuthentication, categorizeHTTPStatus(401))
}

func TestCategorizeGRPCCode(t *testing.T) {
	assert.Equal(t, models.CategoryNotFound, categorizeGRPCCode("NotFound"))
	assert.Equal(t, models.CategoryTimeout, categorizeGRPCCode("DeadlineExceeded"))
	assert.Equal(t, models.CategoryNetwork, categorizeGRPCCode("Unavailable"))
	assert.Equal(t, models.CategoryAgent, categorizeGRPCCode("totally-unrecognised"))
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, models.CategoryNetwork.Retriable())
	assert.True(t, models.CategoryTimeout.Retriable())
	assert.False(t, models.CategoryServer.Retriable())
	assert.False(t, models.CategoryValidation.Retriable())
}

func TestBackoffDelayCapped(t *testing.T) {
	d := backoffDelay(10, 10_000_000_000) // 10s in ns
	assert.LessOrEqual(t, d.Seconds(), 10.0)
}
