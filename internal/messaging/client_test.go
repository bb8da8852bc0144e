package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betinho-miniapp/internal/chain"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func newSigner(t *testing.T) *chain.Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return chain.NewSigner(key, big.NewInt(88882))
}

func TestConversationIDIsSymmetric(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	alice := New(rdb, "dev", newSigner(t), nil)
	bob := New(rdb, "dev", newSigner(t), nil)

	ab, err := alice.NewConversation(ctx, bob.Address().Hex())
	require.NoError(t, err)
	ba, err := bob.NewConversation(ctx, alice.Address().Hex())
	require.NoError(t, err)

	assert.Equal(t, ab.ID(), ba.ID())

	ids, err := bob.Conversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ab.ID()}, ids)
}

func TestNewConversationValidatesPeer(t *testing.T) {
	ctx := context.Background()
	alice := New(newRedis(t), "dev", newSigner(t), nil)

	_, err := alice.NewConversation(ctx, "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidPeer)

	_, err = alice.NewConversation(ctx, alice.Address().Hex())
	assert.ErrorIs(t, err, ErrSelfMessage)
}

func TestSendAndHistory(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	alice := New(rdb, "dev", newSigner(t), nil)
	bob := New(rdb, "dev", newSigner(t), nil)

	conv, err := alice.NewConversation(ctx, bob.Address().Hex())
	require.NoError(t, err)

	_, err = conv.Send(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	sent, err := conv.Send(ctx, "France takes it")
	require.NoError(t, err)
	assert.Equal(t, alice.Address().Hex(), sent.SenderAddress)

	reply, err := bob.NewConversation(ctx, alice.Address().Hex())
	require.NoError(t, err)
	_, err = reply.Send(ctx, "no way")
	require.NoError(t, err)

	msgs, err := conv.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "France takes it", msgs[0].Content)
	assert.Equal(t, bob.Address().Hex(), msgs[1].SenderAddress)
}

func TestHistoryDropsForgedMessages(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	alice := New(rdb, "dev", newSigner(t), nil)
	mallory := newSigner(t)

	conv, err := alice.NewConversation(ctx, mallory.Address().Hex())
	require.NoError(t, err)

	forged, err := New(rdb, "dev", mallory, nil).seal("i am alice")
	require.NoError(t, err)
	forged.Sender = alice.Address().Hex()
	data, err := json.Marshal(forged)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(ctx, fmt.Sprintf(KeyConversation, "dev", conv.ID()), data).Err())

	msgs, err := conv.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStreamDeliversUntilStopped(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	alice := New(rdb, "dev", newSigner(t), nil)
	bob := New(rdb, "dev", newSigner(t), nil)

	conv, err := alice.NewConversation(ctx, bob.Address().Hex())
	require.NoError(t, err)

	sub, err := conv.Stream(ctx)
	require.NoError(t, err)

	other, err := bob.NewConversation(ctx, alice.Address().Hex())
	require.NoError(t, err)
	_, err = other.Send(ctx, "live")
	require.NoError(t, err)

	select {
	case m := <-sub.C():
		assert.Equal(t, "live", m.Content)
		assert.Equal(t, bob.Address().Hex(), m.SenderAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live message")
	}

	sub.Stop()
	sub.Stop()

	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestStreamStopsWithContext(t *testing.T) {
	rdb := newRedis(t)
	alice := New(rdb, "dev", newSigner(t), nil)
	conv, err := alice.NewConversation(context.Background(), newSigner(t).Address().Hex())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := conv.Stream(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestEnvironmentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	signer := newSigner(t)
	peer := newSigner(t).Address().Hex()

	dev, err := New(rdb, "dev", signer, nil).NewConversation(ctx, peer)
	require.NoError(t, err)
	_, err = dev.Send(ctx, "hello dev")
	require.NoError(t, err)

	prod, err := New(rdb, "production", signer, nil).NewConversation(ctx, peer)
	require.NoError(t, err)
	msgs, err := prod.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
