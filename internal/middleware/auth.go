package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"betinho-miniapp/internal/services"
)

const (
	CtxAddress   = "address"
	CtxSessionID = "session_id"
)

// AuthMiddleware accepts a token only while its login record exists, so a
// logout revokes every request carrying that token.
func AuthMiddleware(jwtService *services.JWTService, redisService *services.RedisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				return
			}
			tokenString = parts[1]
		} else {
			// Browsers cannot set headers on websocket upgrades.
			tokenString = c.Query("token")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		rec, err := redisService.GetLogin(c.Request.Context(), claims.SessionID)
		if errors.Is(err, redis.Nil) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session revoked"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to check session", "details": err.Error()})
			return
		}
		if !strings.EqualFold(rec.Address, claims.Address) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session revoked"})
			return
		}

		c.Set(CtxAddress, claims.Address)
		c.Set(CtxSessionID, claims.SessionID)

		c.Next()
	}
}

type rateRule struct {
	action string
	limit  int
	window time.Duration
}

func ruleFor(c *gin.Context) (rateRule, bool) {
	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/faucet"):
		return rateRule{action: "faucet", limit: services.DefaultRateLimitFaucet, window: time.Hour}, true
	case strings.HasSuffix(path, "/pick"):
		return rateRule{action: "pick", limit: services.DefaultRateLimitPicks, window: time.Minute}, true
	default:
		return rateRule{}, false
	}
}

func RateLimitMiddleware(redisService *services.RedisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.GetString(CtxAddress)
		if address == "" {
			c.Next()
			return
		}

		rule, ok := ruleFor(c)
		if !ok {
			c.Next()
			return
		}

		allowed, err := redisService.CheckRateLimit(c.Request.Context(), strings.ToLower(address), rule.action, rule.limit, rule.window)
		if err != nil || !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": rule.window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
