package handlers

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

type GamePageHandler struct {
	session *services.SessionManager
	dir     *services.GameDirectory
	faucet  *services.FaucetClient
}

func NewGamePageHandler(session *services.SessionManager, dir *services.GameDirectory, faucet *services.FaucetClient) *GamePageHandler {
	return &GamePageHandler{session: session, dir: dir, faucet: faucet}
}

func (h *GamePageHandler) explorerURL(hash string) string {
	p := h.session.Provider()
	if p == nil {
		return ""
	}
	return models.TxURL(p.Chain().BlockExplorerURL, hash)
}

// GetGame loads the game into the registry and returns its info with the
// connected player's bet.
func (h *GamePageHandler) GetGame(c *gin.Context) {
	ctx := c.Request.Context()
	addr := c.Param("contractAddress")

	if _, err := h.dir.LoadGame(ctx, addr); err != nil {
		abortWithError(c, "Failed to load game", err)
		return
	}

	var (
		info models.GameInfo
		bet  models.PlayerBet
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		info, err = h.dir.GetGameInfo(ectx, addr)
		return err
	})
	eg.Go(func() (err error) {
		bet, err = h.dir.GetPlayerBets(ectx, addr, "")
		return err
	})
	if err := eg.Wait(); err != nil {
		abortWithError(c, "Failed to get game", err)
		return
	}

	body := gin.H{
		"address": addr,
		"info":    info,
		"bet":     bet,
		"has_bet": bet.HasBet(),
	}
	if desc, ok := h.dir.Catalog().FindByAddress(addr); ok {
		body["game"] = desc
	}
	c.JSON(http.StatusOK, body)
}

func (h *GamePageHandler) PickOption(c *gin.Context) {
	var req models.PickOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	hash, err := h.dir.PickOption(c.Request.Context(), c.Param("contractAddress"), req.Option, req.Amount)
	if err != nil {
		abortWithError(c, "Failed to pick option", err)
		return
	}

	c.JSON(http.StatusOK, models.TxResult{TxHash: hash, ExplorerURL: h.explorerURL(hash)})
}

func (h *GamePageHandler) ResolveGame(c *gin.Context) {
	var req models.ResolveGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	hash, err := h.dir.ResolveGame(c.Request.Context(), c.Param("contractAddress"), req.WinningOption)
	if err != nil {
		abortWithError(c, "Failed to resolve game", err)
		return
	}

	c.JSON(http.StatusOK, models.TxResult{TxHash: hash, ExplorerURL: h.explorerURL(hash)})
}

func (h *GamePageHandler) ClaimReward(c *gin.Context) {
	hash, err := h.dir.ClaimReward(c.Request.Context(), c.Param("contractAddress"))
	if err != nil {
		abortWithError(c, "Failed to claim reward", err)
		return
	}

	c.JSON(http.StatusOK, models.TxResult{TxHash: hash, ExplorerURL: h.explorerURL(hash)})
}

// Subscribe opts the connected wallet into the game's news channel.
func (h *GamePageHandler) Subscribe(c *gin.Context) {
	addr := c.Param("contractAddress")
	if !common.IsHexAddress(addr) {
		abortWithError(c, "Failed to subscribe", services.ErrInvalidAddress)
		return
	}

	p := h.session.Provider()
	if p == nil {
		abortWithError(c, "Failed to subscribe", services.ErrNotConnected)
		return
	}

	resp, err := h.faucet.SubscribeNews(c.Request.Context(), p.Signer(), common.HexToAddress(addr).Hex(), time.Now())
	if err != nil {
		abortWithError(c, "Failed to subscribe", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription": resp,
		"subscribed":   !resp.Failed(),
	})
}
