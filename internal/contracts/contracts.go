// Package contracts binds the game factory, order book and game ABIs.
package contracts

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/models"
)

//go:embed abi/*.json
var abiFS embed.FS

var (
	GameFactoryABI = mustLoad("abi/GameFactory.json")
	GameABI        = mustLoad("abi/Game.json")
	OrderBookABI   = mustLoad("abi/OrderBook.json")
)

const EventGameCreated = "GameCreated"

func mustLoad(name string) abi.ABI {
	data, err := abiFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("contracts: read %s: %v", name, err))
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("contracts: parse %s: %v", name, err))
	}
	return parsed
}

type Factory struct {
	*chain.Contract
}

func NewFactory(address common.Address, backend chain.Backend, signer *chain.Signer) *Factory {
	return &Factory{Contract: chain.NewContract(address, GameFactoryABI, backend, signer)}
}

func (f *Factory) CreateGame(ctx context.Context, salt [32]byte, resolver common.Address, expectedEnd *big.Int, optionNames []string) (*chain.PendingTx, error) {
	return f.Transact(ctx, nil, "createGame", salt, resolver, expectedEnd, optionNames)
}

func (f *Factory) GetGameAddress(ctx context.Context, salt [32]byte) (common.Address, error) {
	out, err := f.Call(ctx, "getGameAddress", salt)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// GameCreatedAddress extracts the deployed game address from a creation
// receipt, if the factory emitted the event.
func (f *Factory) GameCreatedAddress(receipt *types.Receipt) (common.Address, bool) {
	id := GameFactoryABI.Events[EventGameCreated].ID
	for _, l := range receipt.Logs {
		if l.Address != f.Address() || len(l.Topics) < 2 || l.Topics[0] != id {
			continue
		}
		return TopicAddress(l.Topics[1]), true
	}
	return common.Address{}, false
}

// GameCreatedLogs scans every creation event from fromBlock to the head.
func (f *Factory) GameCreatedLogs(ctx context.Context, fromBlock uint64) ([]models.GameEvent, error) {
	logs, err := f.FilterLogs(ctx, EventGameCreated, fromBlock)
	if err != nil {
		return nil, err
	}

	events := make([]models.GameEvent, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}
		events = append(events, models.GameEvent{
			GameAddress: TopicAddress(l.Topics[1]).Hex(),
			BlockNumber: l.BlockNumber,
		})
	}
	return events, nil
}

// TopicAddress decodes an indexed address topic: the last 20 of 32 bytes.
func TopicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes()[12:])
}

type OrderBook struct {
	*chain.Contract
}

func NewOrderBook(address common.Address, backend chain.Backend, signer *chain.Signer) *OrderBook {
	return &OrderBook{Contract: chain.NewContract(address, OrderBookABI, backend, signer)}
}

func (o *OrderBook) GameFactory(ctx context.Context) (common.Address, error) {
	out, err := o.Call(ctx, "gameFactory")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

type Game struct {
	*chain.Contract
}

func NewGame(address common.Address, backend chain.Backend, signer *chain.Signer) *Game {
	return &Game{Contract: chain.NewContract(address, GameABI, backend, signer)}
}

func (g *Game) PickOption(ctx context.Context, optionName string, value *big.Int) (*chain.PendingTx, error) {
	return g.Transact(ctx, value, "pickOption", optionName)
}

func (g *Game) ResolveGame(ctx context.Context, winningOption string) (*chain.PendingTx, error) {
	return g.Transact(ctx, nil, "resolveGame", winningOption)
}

func (g *Game) ClaimReward(ctx context.Context) (*chain.PendingTx, error) {
	return g.Transact(ctx, nil, "claimReward")
}

func (g *Game) Status(ctx context.Context) (models.GameStatus, error) {
	out, err := g.Call(ctx, "status")
	if err != nil {
		return models.GameStatus{}, err
	}

	state := out[0].(uint8)
	end := out[1].(*big.Int)
	return models.GameStatus{
		State:         models.GameState(state),
		ExpectedEnd:   time.Unix(end.Int64(), 0).UTC(),
		WinningOption: out[2].(string),
	}, nil
}

func (g *Game) OptionNames(ctx context.Context) ([]string, error) {
	out, err := g.Call(ctx, "getOptionNames")
	if err != nil {
		return nil, err
	}
	return out[0].([]string), nil
}

func (g *Game) TotalPool(ctx context.Context) (*big.Int, error) {
	out, err := g.Call(ctx, "getTotalPool")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (g *Game) PlayerBet(ctx context.Context, player common.Address) (models.PlayerBet, error) {
	out, err := g.Call(ctx, "playerBets", player)
	if err != nil {
		return models.PlayerBet{}, err
	}
	return models.PlayerBet{
		OptionName: out[0].(string),
		Amount:     out[1].(*big.Int),
	}, nil
}
