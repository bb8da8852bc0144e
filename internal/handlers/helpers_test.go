package handlers_test

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func typesLog(topic common.Hash, game common.Address, block uint64) types.Log {
	return types.Log{
		Address:     factoryAddr,
		Topics:      []common.Hash{topic, common.BytesToHash(game.Bytes())},
		BlockNumber: block,
	}
}
