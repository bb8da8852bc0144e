package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/identity"
	"betinho-miniapp/internal/messaging"
	"betinho-miniapp/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotConnected),
		errors.Is(err, identity.ErrNotConnected):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotInitialized),
		errors.Is(err, services.ErrFactoryNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrGameNotLoaded),
		errors.Is(err, services.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, services.ErrPickOptionFailed),
		errors.Is(err, messaging.ErrEmptyMessage),
		errors.Is(err, messaging.ErrInvalidPeer),
		errors.Is(err, messaging.ErrSelfMessage):
		return http.StatusBadRequest
	case errors.Is(err, chain.ErrTxReverted),
		errors.Is(err, services.ErrNotOnNetwork):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func abortWithError(c *gin.Context, msg string, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}
