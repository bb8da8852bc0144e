package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"betinho-miniapp/internal/services"
)

// SessionGate holds requests until the session has been initialized and
// answers 503 while it is still starting.
type SessionGate interface {
	Ready() <-chan struct{}
	Status() services.InitStatus
	Connected() bool
}

func RequireSession(s SessionGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-s.Ready():
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":  "Session is starting",
				"status": s.Status(),
			})
			return
		}

		if st := s.Status(); st.Phase == services.InitFailed {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Session failed to initialize",
				"details": st.Reason,
			})
			return
		}

		c.Next()
	}
}

// RequireConnected refuses requests while no wallet is connected.
func RequireConnected(s SessionGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Connected() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
			return
		}
		c.Next()
	}
}

// InitDirectory lazily binds the game directory once a session is live.
func InitDirectory(dir *services.GameDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := dir.Init(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Game directory unavailable",
				"details": err.Error(),
			})
			return
		}
		c.Next()
	}
}
