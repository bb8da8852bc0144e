// Package messaging is the wallet-addressed chat transport. Conversations
// live in Redis: a capped list for history and a pub/sub channel for live
// delivery. Every message carries the sender's personal signature.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/models"
)

var (
	ErrInvalidPeer  = errors.New("invalid peer address")
	ErrEmptyMessage = errors.New("message is empty")
	ErrSelfMessage  = errors.New("cannot open a conversation with yourself")
)

type envelope struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	SentAt    int64  `json:"sent_at"`
	Signature string `json:"signature"`
}

func (e envelope) payload() []byte {
	return []byte(fmt.Sprintf("%s:%s:%d:%s", e.ID, strings.ToLower(e.Sender), e.SentAt, e.Content))
}

type Client struct {
	rdb    *redis.Client
	env    string
	signer *chain.Signer
	log    slog.Logger
	now    func() time.Time
}

// New builds a client acting as signer's address in the given environment.
func New(rdb *redis.Client, env string, signer *chain.Signer, log slog.Logger) *Client {
	if log == nil {
		log = slog.Disabled
	}
	return &Client{rdb: rdb, env: env, signer: signer, log: log, now: time.Now}
}

func (c *Client) Address() common.Address { return c.signer.Address() }

func (c *Client) Env() string { return c.env }

// NewConversation opens the one-to-one conversation with peer. Both sides
// derive the same conversation id.
func (c *Client) NewConversation(ctx context.Context, peer string) (*Conversation, error) {
	if !common.IsHexAddress(peer) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPeer, peer)
	}

	peerAddr := common.HexToAddress(peer)
	if peerAddr == c.signer.Address() {
		return nil, ErrSelfMessage
	}

	pair := []string{
		strings.ToLower(c.signer.Address().Hex()),
		strings.ToLower(peerAddr.Hex()),
	}
	sort.Strings(pair)

	conv := &Conversation{
		client: c,
		id:     pair[0] + "-" + pair[1],
		peer:   peerAddr,
	}

	for _, member := range pair {
		inbox := fmt.Sprintf(KeyInbox, c.env, member)
		if err := c.rdb.SAdd(ctx, inbox, conv.id).Err(); err != nil {
			return nil, fmt.Errorf("failed to register conversation: %w", err)
		}
	}

	return conv, nil
}

// Conversations lists the ids of conversations this address takes part in.
func (c *Client) Conversations(ctx context.Context) ([]string, error) {
	inbox := fmt.Sprintf(KeyInbox, c.env, strings.ToLower(c.signer.Address().Hex()))
	ids, err := c.rdb.SMembers(ctx, inbox).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) seal(content string) (envelope, error) {
	e := envelope{
		ID:      uuid.New().String(),
		Sender:  c.signer.Address().Hex(),
		Content: content,
		SentAt:  c.now().UnixMilli(),
	}

	sig, err := c.signer.SignMessage(e.payload())
	if err != nil {
		return e, fmt.Errorf("failed to sign message: %w", err)
	}
	e.Signature = hexutil.Encode(sig)
	return e, nil
}

// open verifies the envelope signature and converts it to a ChatMessage.
func open(raw string) (models.ChatMessage, error) {
	var e envelope
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return models.ChatMessage{}, fmt.Errorf("malformed message: %w", err)
	}

	sig, err := hexutil.Decode(e.Signature)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("malformed signature: %w", err)
	}

	signer, err := chain.RecoverMessageSigner(e.payload(), sig)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if !strings.EqualFold(signer.Hex(), e.Sender) {
		return models.ChatMessage{}, fmt.Errorf("signature does not match sender %s", e.Sender)
	}

	return models.ChatMessage{
		ID:            e.ID,
		SenderAddress: signer.Hex(),
		Content:       e.Content,
		Timestamp:     time.UnixMilli(e.SentAt).UTC(),
	}, nil
}
