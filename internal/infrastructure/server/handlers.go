package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"open_descriptors": s.tracker.Len(),
	})
}

func (s *Server) descriptors(c *gin.Context) {
	entries := s.tracker.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"count":       len(entries),
		"descriptors": entries,
	})
}

func (s *Server) metricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetSnapshot())
}
