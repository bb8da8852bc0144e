package handlers

import (
	"net/http"
	"time"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"

	"betinho-miniapp/internal/middleware"
	"betinho-miniapp/internal/services"
)

type AuthHandler struct {
	session *services.SessionManager
	jwt     *services.JWTService
	redis   *services.RedisService
	log     slog.Logger
}

func NewAuthHandler(session *services.SessionManager, jwt *services.JWTService, redis *services.RedisService, log slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Disabled
	}
	return &AuthHandler{session: session, jwt: jwt, redis: redis, log: log}
}

// Status backs the login page: whether the session is ready and connected.
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session": h.session.Snapshot()})
}

func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.session.Connected() {
		if err := h.session.Login(ctx); err != nil {
			abortWithError(c, "Failed to login", err)
			return
		}
	}

	address := h.session.Address()
	token, claims, err := h.jwt.GenerateToken(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	rec := services.LoginRecord{SessionID: claims.SessionID, Address: address, CreatedAt: time.Now().UTC()}
	if err := h.redis.StoreLogin(ctx, rec, h.jwt.Expiry()); err != nil {
		h.log.Errorf("Failed to store login record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
		"session":    h.session.Snapshot(),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.session.Logout(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout", "details": err.Error()})
		return
	}

	if sid := c.GetString(middleware.CtxSessionID); sid != "" {
		if err := h.redis.DeleteLogin(ctx, sid); err != nil {
			h.log.Warnf("Failed to delete login record: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
