package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

const defaultLatestGames = 5

type HomeHandler struct {
	session *services.SessionManager
	dir     *services.GameDirectory
	faucet  *services.FaucetClient
}

func NewHomeHandler(session *services.SessionManager, dir *services.GameDirectory, faucet *services.FaucetClient) *HomeHandler {
	return &HomeHandler{session: session, dir: dir, faucet: faucet}
}

func (h *HomeHandler) GetHome(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.session.UserInfo(ctx)
	if err != nil {
		abortWithError(c, "Failed to get user info", err)
		return
	}

	balance, err := h.session.Balance(ctx)
	if err != nil {
		abortWithError(c, "Failed to get balance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"address": balance.Address,
		"short":   models.FormatWalletAddress(balance.Address, 4),
		"balance": balance,
		"games":   h.dir.Catalog().List(),
	})
}

func (h *HomeHandler) ToggleStar(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return
	}

	game, err := h.dir.Catalog().ToggleStar(id)
	if err != nil {
		abortWithError(c, "Failed to star game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *HomeHandler) LatestGames(c *gin.Context) {
	count := defaultLatestGames
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid count"})
			return
		}
		count = n
	}

	events, err := h.dir.GetLatestGames(c.Request.Context(), count)
	if err != nil {
		abortWithError(c, "Failed to get latest games", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": events})
}

func (h *HomeHandler) RequestFaucet(c *gin.Context) {
	resp := h.faucet.Fund(c.Request.Context(), h.session.Address())

	body := gin.H{
		"faucet":  resp,
		"success": resp.IsSuccess(),
	}
	if resp.TxHash != "" {
		if p := h.session.Provider(); p != nil {
			body["explorer_url"] = models.TxURL(p.Chain().BlockExplorerURL, resp.TxHash)
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *HomeHandler) CreateGame(c *gin.Context) {
	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resolver := req.Resolver
	if resolver == "" {
		resolver = h.session.Address()
	}

	addr, err := h.dir.CreateGame(c.Request.Context(), resolver, time.Unix(req.ExpectedEnd, 0), req.OptionNames)
	if err != nil {
		abortWithError(c, "Failed to create game", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game_address": addr})
}
