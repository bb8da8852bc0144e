package chain_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/chain/chaintest"
	"betinho-miniapp/internal/config"
)

const counterABI = `[
	{"type":"function","name":"count","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"bump","stateMutability":"payable","inputs":[{"name":"by","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"Bumped","anonymous":false,"inputs":[{"name":"by","type":"uint256","indexed":true}]}
]`

var spicyID = big.NewInt(88882)

func setup(t *testing.T) (*chaintest.Backend, *chain.Contract, abi.ABI) {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(counterABI))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	backend := chaintest.NewBackend(spicyID)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	c := chain.NewContract(addr, parsed, backend, chain.NewSigner(key, spicyID)).
		WithPollInterval(time.Millisecond)
	return backend, c, parsed
}

func TestContractCall(t *testing.T) {
	backend, c, parsed := setup(t)
	backend.Returns(c.Address(), parsed, "count", big.NewInt(7))

	out, err := c.Call(context.Background(), "count")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(7), out[0].(*big.Int).Int64())
}

func TestContractTransactAndWait(t *testing.T) {
	backend, c, parsed := setup(t)

	var gotBy, gotValue *big.Int
	backend.Handle(c.Address(), parsed, "bump", func(args []interface{}, value *big.Int) ([]interface{}, error) {
		gotBy = args[0].(*big.Int)
		gotValue = value
		return nil, nil
	})

	ctx := context.Background()
	pending, err := c.Transact(ctx, big.NewInt(42), "bump", big.NewInt(3))
	require.NoError(t, err)

	receipt, err := pending.Wait(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, pending.Hash(), receipt.TxHash)
	assert.Equal(t, int64(3), gotBy.Int64())
	assert.Equal(t, int64(42), gotValue.Int64())

	sent := backend.LastSent()
	require.NotNil(t, sent)
	from, err := types.Sender(types.LatestSignerForChainID(spicyID), sent)
	require.NoError(t, err)
	assert.Equal(t, c.Signer().Address(), from)
}

func TestWaitReportsRevert(t *testing.T) {
	backend, c, parsed := setup(t)
	backend.Handle(c.Address(), parsed, "bump", func([]interface{}, *big.Int) ([]interface{}, error) {
		return nil, errors.New("execution reverted")
	})

	ctx := context.Background()
	pending, err := c.Transact(ctx, nil, "bump", big.NewInt(1))
	require.NoError(t, err)

	_, err = pending.Wait(ctx, 1)
	assert.ErrorIs(t, err, chain.ErrTxReverted)
}

func TestTransactFailsWhenNodeRejects(t *testing.T) {
	_, c, _ := setup(t)
	pending, err := c.Transact(context.Background(), nil, "bump", big.NewInt(1))
	// no handler registered, so the fake refuses the send
	require.Error(t, err)
	assert.Nil(t, pending)
}

func TestTransactWithoutSigner(t *testing.T) {
	backend, c, parsed := setup(t)
	ro := chain.NewContract(c.Address(), parsed, backend, nil)

	_, err := ro.Transact(context.Background(), nil, "bump", big.NewInt(1))
	assert.ErrorIs(t, err, chain.ErrReadOnly)
}

func TestFilterLogs(t *testing.T) {
	backend, c, parsed := setup(t)
	ev := parsed.Events["Bumped"]

	backend.AddLog(types.Log{Address: c.Address(), Topics: []common.Hash{ev.ID}, BlockNumber: 10})
	backend.AddLog(types.Log{Address: c.Address(), Topics: []common.Hash{ev.ID}, BlockNumber: 3})
	backend.AddLog(types.Log{Address: common.HexToAddress("0x01"), Topics: []common.Hash{ev.ID}, BlockNumber: 12})

	logs, err := c.FilterLogs(context.Background(), "Bumped", 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(10), logs[0].BlockNumber)

	_, err = c.FilterLogs(context.Background(), "Missing", 0)
	assert.Error(t, err)
}

func TestSignMessageRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s := chain.NewSigner(key, spicyID)

	sig, err := s.SignMessage([]byte("hello"))
	require.NoError(t, err)

	addr, err := chain.RecoverMessageSigner([]byte("hello"), sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)

	other, err := chain.RecoverMessageSigner([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, s.Address(), other)
}

func TestParseChainID(t *testing.T) {
	id, err := chain.ParseChainID(config.ChilizSpicyTestnet.ChainID)
	require.NoError(t, err)
	assert.Equal(t, int64(88882), id.Int64())

	id, err = chain.ParseChainID("88882")
	require.NoError(t, err)
	assert.Equal(t, int64(88882), id.Int64())

	_, err = chain.ParseChainID("spicy")
	assert.Error(t, err)
}

func TestProviderDerivesSameKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	backend := chaintest.NewBackend(spicyID)
	signer := chain.NewSigner(key, spicyID)
	backend.SetBalance(signer.Address(), big.NewInt(5))

	p := chain.NewProvider(config.ChilizSpicyTestnet, backend, signer)

	derived, err := p.DeriveSigner()
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), derived.Address())
	assert.NotSame(t, signer, derived)

	bal, err := p.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal.Int64())
}
