package models

import (
	"math/big"
	"time"
)

type GameDescriptor struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	SideA           string `json:"side_a"`
	SideB           string `json:"side_b"`
	ContractAddress string `json:"contract_address"`
	Starred         bool   `json:"starred"`
	Image           string `json:"image"`
}

// GameState mirrors the on-chain status enum of a game contract.
type GameState uint8

const (
	GameStateOpen GameState = iota
	GameStateClosed
	GameStateResolved
	GameStateCancelled
)

func (s GameState) String() string {
	switch s {
	case GameStateOpen:
		return "open"
	case GameStateClosed:
		return "closed"
	case GameStateResolved:
		return "resolved"
	case GameStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type GameStatus struct {
	State         GameState `json:"state"`
	ExpectedEnd   time.Time `json:"expected_end"`
	WinningOption string    `json:"winning_option,omitempty"`
}

type GameInfo struct {
	Status    GameStatus `json:"status"`
	Options   []string   `json:"options"`
	TotalPool *big.Int   `json:"total_pool"`
}

type GameEvent struct {
	GameAddress string `json:"game_address"`
	BlockNumber uint64 `json:"block_number"`
}

type PlayerBet struct {
	OptionName string   `json:"option_name"`
	Amount     *big.Int `json:"amount"`
}

// HasBet reports whether the player has placed anything on the game.
func (b PlayerBet) HasBet() bool {
	return b.Amount != nil && b.Amount.Sign() > 0
}

type PickOptionRequest struct {
	Option string `json:"option" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type ResolveGameRequest struct {
	WinningOption string `json:"winning_option" binding:"required"`
}

type CreateGameRequest struct {
	Resolver    string   `json:"resolver"`
	ExpectedEnd int64    `json:"expected_end" binding:"required"`
	OptionNames []string `json:"option_names" binding:"required,min=2"`
}

type TxResult struct {
	TxHash      string `json:"tx_hash"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}
