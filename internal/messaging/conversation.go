package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"betinho-miniapp/internal/models"
)

type Conversation struct {
	client *Client
	id     string
	peer   common.Address
}

func (c *Conversation) ID() string { return c.id }

func (c *Conversation) PeerAddress() common.Address { return c.peer }

func (c *Conversation) historyKey() string {
	return fmt.Sprintf(KeyConversation, c.client.env, c.id)
}

func (c *Conversation) channel() string {
	return fmt.Sprintf(KeyConversationChannel, c.client.env, c.id)
}

func (c *Conversation) Send(ctx context.Context, content string) (models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}

	e, err := c.client.seal(content)
	if err != nil {
		return models.ChatMessage{}, err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to marshal message: %v", err)
	}

	pipe := c.client.rdb.TxPipeline()
	pipe.RPush(ctx, c.historyKey(), data)
	pipe.LTrim(ctx, c.historyKey(), -MaxHistory, -1)
	pipe.Expire(ctx, c.historyKey(), TTLConversation)
	pipe.Publish(ctx, c.channel(), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to send message: %w", err)
	}

	return open(string(data))
}

// Messages returns the stored history, oldest first. Entries whose
// signature does not verify are skipped.
func (c *Conversation) Messages(ctx context.Context) ([]models.ChatMessage, error) {
	raw, err := c.client.rdb.LRange(ctx, c.historyKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	msgs := make([]models.ChatMessage, 0, len(raw))
	for _, r := range raw {
		m, err := open(r)
		if err != nil {
			c.client.log.Warnf("Dropping message in %s: %v", c.id, err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Stream subscribes to new messages. The subscription ends when Stop is
// called or ctx is done; C is closed afterwards.
func (c *Conversation) Stream(ctx context.Context) (*Subscription, error) {
	ps := c.client.rdb.Subscribe(ctx, c.channel())
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		c:      make(chan models.ChatMessage, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go sub.run(ctx, ps, c.client.log.Warnf)

	return sub, nil
}

type Subscription struct {
	c      chan models.ChatMessage
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) C() <-chan models.ChatMessage { return s.c }

// Stop ends the subscription and waits for the reader to exit. It is safe to
// call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) run(ctx context.Context, ps *redis.PubSub, warnf func(string, ...interface{})) {
	defer close(s.done)
	defer close(s.c)
	defer ps.Close()

	in := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}
			m, err := open(raw.Payload)
			if err != nil {
				warnf("Dropping live message: %v", err)
				continue
			}
			select {
			case s.c <- m:
			case <-ctx.Done():
				return
			}
		}
	}
}
