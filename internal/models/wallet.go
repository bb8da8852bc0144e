package models

import "math/big"

type Balance struct {
	Address   string   `json:"address"`
	Wei       *big.Int `json:"wei"`
	Formatted string   `json:"formatted"`
	Ticker    string   `json:"ticker"`
}
