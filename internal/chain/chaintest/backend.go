// Package chaintest provides an in-memory chain backend for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MethodFunc receives the decoded call arguments and the call value, and
// returns the values to pack as outputs.
type MethodFunc func(args []interface{}, value *big.Int) ([]interface{}, error)

// SendHook may return logs to attach to the mined receipt, or an error to
// mark the transaction as reverted.
type SendHook func(tx *types.Transaction, from common.Address) ([]*types.Log, error)

type methodKey struct {
	to       common.Address
	selector [4]byte
}

type handler struct {
	method abi.Method
	fn     MethodFunc
}

type pending struct {
	receipt *types.Receipt
}

// Backend mines every transaction into its own block on send. The head
// advances by one on every BlockNumber call so confirmation waits finish.
type Backend struct {
	mu sync.Mutex

	ChainID  *big.Int
	Head     uint64
	GasPrice *big.Int

	handlers map[methodKey]handler
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	receipts map[common.Hash]pending
	logs     []types.Log

	Sent   []*types.Transaction
	OnSend SendHook

	SendErr   error
	CallErr   error
	FilterErr error
	Queries   []ethereum.FilterQuery

	closes int
}

func NewBackend(chainID *big.Int) *Backend {
	return &Backend{
		ChainID:  chainID,
		Head:     100,
		GasPrice: big.NewInt(2_500_000_000_000),
		handlers: make(map[methodKey]handler),
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]pending),
	}
}

func (b *Backend) Handle(to common.Address, parsed abi.ABI, name string, fn MethodFunc) {
	m, ok := parsed.Methods[name]
	if !ok {
		panic(fmt.Sprintf("chaintest: method %s not in abi", name))
	}

	var sel [4]byte
	copy(sel[:], m.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[methodKey{to: to, selector: sel}] = handler{method: m, fn: fn}
}

// Returns registers a view that always answers with outs.
func (b *Backend) Returns(to common.Address, parsed abi.ABI, name string, outs ...interface{}) {
	b.Handle(to, parsed, name, func([]interface{}, *big.Int) ([]interface{}, error) {
		return outs, nil
	})
}

func (b *Backend) SetBalance(addr common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = new(big.Int).Set(wei)
}

func (b *Backend) AddLog(l types.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, l)
}

// Close only counts; the backend stays usable so tests can reconnect to it.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
}

func (b *Backend) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

func (b *Backend) SentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Sent)
}

func (b *Backend) LastSent() *types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Sent) == 0 {
		return nil
	}
	return b.Sent[len(b.Sent)-1]
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Head++
	return b.Head, nil
}

func (b *Backend) BalanceAt(ctx context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (b *Backend) lookup(to *common.Address, data []byte) (handler, error) {
	if to == nil || len(data) < 4 {
		return handler{}, fmt.Errorf("chaintest: malformed call")
	}
	var sel [4]byte
	copy(sel[:], data[:4])

	h, ok := b.handlers[methodKey{to: *to, selector: sel}]
	if !ok {
		return handler{}, fmt.Errorf("chaintest: no handler for %x on %s", sel, to.Hex())
	}
	return h, nil
}

func (b *Backend) invoke(h handler, data []byte, value *big.Int) ([]interface{}, error) {
	args, err := h.method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	return h.fn(args, value)
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	if b.CallErr != nil {
		err := b.CallErr
		b.mu.Unlock()
		return nil, err
	}
	h, err := b.lookup(call.To, call.Data)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	outs, err := b.invoke(h, call.Data, call.Value)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(outs...)
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 210_000, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	if b.SendErr != nil {
		err := b.SendErr
		b.mu.Unlock()
		return err
	}

	from, err := types.Sender(types.LatestSignerForChainID(b.ChainID), tx)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("chaintest: bad signature: %w", err)
	}

	h, err := b.lookup(tx.To(), tx.Data())
	hook := b.OnSend
	b.mu.Unlock()
	if err != nil {
		return err
	}

	status := types.ReceiptStatusSuccessful
	if _, err := b.invoke(h, tx.Data(), tx.Value()); err != nil {
		status = types.ReceiptStatusFailed
	}

	var logs []*types.Log
	if hook != nil && status == types.ReceiptStatusSuccessful {
		logs, err = hook(tx, from)
		if err != nil {
			status = types.ReceiptStatusFailed
			logs = nil
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.Head++
	block := b.Head
	for _, l := range logs {
		l.BlockNumber = block
		l.TxHash = tx.Hash()
		b.logs = append(b.logs, *l)
	}

	b.nonces[from] = tx.Nonce() + 1
	b.Sent = append(b.Sent, tx)
	b.receipts[tx.Hash()] = pending{receipt: &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(block),
		Logs:        logs,
		GasUsed:     tx.Gas(),
	}}
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return p.receipt, nil
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Queries = append(b.Queries, q)
	if b.FilterErr != nil {
		return nil, b.FilterErr
	}

	var out []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
			if len(l.Topics) == 0 || !containsHash(q.Topics[0], l.Topics[0]) {
				continue
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
