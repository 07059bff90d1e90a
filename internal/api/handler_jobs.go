package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetJob handles GET /jobs/:job_id.
func (s *Server) GetJob(c *gin.Context) {
	job, err := s.store.Jobs.Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
