package handlers

import (
	"context"
	"net/http"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"

	"betinho-miniapp/internal/messaging"
	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

// ChatHandler serves the game page conversation with the configured peer.
type ChatHandler struct {
	session *services.SessionManager
	peer    string
	log     slog.Logger
}

func NewChatHandler(session *services.SessionManager, peer string, log slog.Logger) *ChatHandler {
	if log == nil {
		log = slog.Disabled
	}
	return &ChatHandler{session: session, peer: peer, log: log}
}

func (h *ChatHandler) conversation(ctx context.Context) (*messaging.Conversation, error) {
	mc := h.session.Messaging()
	if mc == nil {
		return nil, services.ErrNotConnected
	}
	return mc.NewConversation(ctx, h.peer)
}

func (h *ChatHandler) History(c *gin.Context) {
	conv, err := h.conversation(c.Request.Context())
	if err != nil {
		abortWithError(c, "Messaging unavailable", err)
		return
	}

	msgs, err := conv.Messages(c.Request.Context())
	if err != nil {
		abortWithError(c, "Failed to load messages", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv.ID(),
		"peer":         conv.PeerAddress().Hex(),
		"messages":     msgs,
	})
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	conv, err := h.conversation(c.Request.Context())
	if err != nil {
		abortWithError(c, "Messaging unavailable", err)
		return
	}

	msg, err := conv.Send(c.Request.Context(), req.Content)
	if err != nil {
		abortWithError(c, "Failed to send message", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
