package services

// Broadcaster fans confirmed ledger activity out to live page viewers.
type Broadcaster interface {
	BroadcastBetPlaced(gameAddress string, bet BetPlaced)
	BroadcastGameResolved(gameAddress, winningOption, txHash string)
}

type BetPlaced struct {
	Player string `json:"player"`
	Option string `json:"option"`
	Amount string `json:"amount"`
	TxHash string `json:"txHash"`
}
