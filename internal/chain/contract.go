package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrReadOnly   = errors.New("contract is bound without a signer")
	ErrTxReverted = errors.New("transaction reverted")
)

const DefaultConfirmPoll = 2 * time.Second

// Contract is a live binding of an ABI to an address on one backend.
// Without a signer only calls and log filters are available.
type Contract struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	signer  *Signer
	poll    time.Duration
}

func NewContract(address common.Address, parsed abi.ABI, backend Backend, signer *Signer) *Contract {
	return &Contract{
		address: address,
		abi:     parsed,
		backend: backend,
		signer:  signer,
		poll:    DefaultConfirmPoll,
	}
}

// WithPollInterval sets how often pending transactions are checked.
func (c *Contract) WithPollInterval(d time.Duration) *Contract {
	if d > 0 {
		c.poll = d
	}
	return c
}

func (c *Contract) Address() common.Address { return c.address }

func (c *Contract) ABI() abi.ABI { return c.abi }

func (c *Contract) Signer() *Signer { return c.signer }

func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: data}
	if c.signer != nil {
		msg.From = c.signer.Address()
	}

	out, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// Transact signs and submits a call to method. value may be nil.
func (c *Contract) Transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*PendingTx, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}

	from := c.signer.Address()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &c.address,
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas for %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &c.address,
		Value:    value,
		Data:     data,
	})

	signed, err := c.signer.SignTx(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", method, err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	return &PendingTx{tx: signed, backend: c.backend, poll: c.poll}, nil
}

// FilterLogs returns every log of event emitted by this contract from
// fromBlock up to the chain head.
func (c *Contract) FilterLogs(ctx context.Context, event string, fromBlock uint64) ([]types.Log, error) {
	ev, ok := c.abi.Events[event]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", event)
	}

	return c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{ev.ID}},
	})
}

type PendingTx struct {
	tx      *types.Transaction
	backend Backend
	poll    time.Duration
}

func (p *PendingTx) Hash() common.Hash { return p.tx.Hash() }

func (p *PendingTx) Transaction() *types.Transaction { return p.tx }

// Wait blocks until the transaction is mined and buried under the given
// number of confirmations, the mining block counting as the first.
func (p *PendingTx) Wait(ctx context.Context, confirmations uint64) (*types.Receipt, error) {
	if confirmations == 0 {
		confirmations = 1
	}

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	var receipt *types.Receipt
	for {
		if receipt == nil {
			r, err := p.backend.TransactionReceipt(ctx, p.tx.Hash())
			switch {
			case err == nil:
				if r.Status != types.ReceiptStatusSuccessful {
					return r, fmt.Errorf("%w: %s", ErrTxReverted, p.tx.Hash().Hex())
				}
				receipt = r
			case !errors.Is(err, ethereum.NotFound):
				return nil, fmt.Errorf("failed to get receipt: %w", err)
			}
		}

		if receipt != nil {
			head, err := p.backend.BlockNumber(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get block number: %w", err)
			}
			mined := receipt.BlockNumber.Uint64()
			if head >= mined && head-mined+1 >= confirmations {
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
