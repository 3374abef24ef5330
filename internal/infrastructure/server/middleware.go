package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Option configures the server.
type Option func(*Server)

// WithCORS lets browsers on the given origins read the endpoints.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithRateLimit caps requests across all clients. rps <= 0 disables it.
func WithRateLimit(rps, burst int) Option {
	return func(s *Server) {
		s.rps = rps
		s.burst = burst
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Origin", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	})
}

func rateLimit(rps, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = rps
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
