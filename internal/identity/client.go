// Package identity is the key-custody client: it authenticates the user
// through a login adapter and hands back a chain provider over the user's
// key.
package identity

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/decred/slog"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/config"
	"betinho-miniapp/internal/models"
)

var (
	ErrNoAdapter       = errors.New("no login adapter configured")
	ErrUnknownAdapter  = errors.New("unknown login adapter")
	ErrNotInitialized  = errors.New("identity client not initialized")
	ErrNotConnected    = errors.New("identity client not connected")
	ErrUnknownNetwork  = errors.New("unknown identity network")
	ErrUnknownProvider = errors.New("unsupported login provider")
)

var networks = map[string]bool{
	"sapphire_devnet":  true,
	"sapphire_mainnet": true,
	"testnet":          true,
	"mainnet":          true,
}

var loginProviders = map[string]bool{
	"google":             true,
	"facebook":           true,
	"twitter":            true,
	"discord":            true,
	"github":             true,
	"apple":              true,
	"email_passwordless": true,
}

// Credentials is what an adapter releases after a successful login.
type Credentials struct {
	PrivateKey *ecdsa.PrivateKey
	UserInfo   models.UserInfo
}

type LoginParams struct {
	LoginProvider string
}

type Adapter interface {
	Name() string
	// Restore returns the credentials of a still valid earlier login, or
	// nil when the user has to log in again.
	Restore(ctx context.Context) (*Credentials, error)
	Connect(ctx context.Context, params LoginParams) (*Credentials, error)
	Logout(ctx context.Context) error
}

type Options struct {
	ClientID string
	Network  string
	Chain    config.ChainConfig
	Dial     chain.Dialer
}

type Client struct {
	mu sync.RWMutex

	opts     Options
	chainID  *big.Int
	log      slog.Logger
	adapters map[string]Adapter

	initialized bool
	active      Adapter
	provider    *chain.Provider
	user        models.UserInfo
}

func New(opts Options, log slog.Logger) (*Client, error) {
	if !networks[opts.Network] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, opts.Network)
	}

	chainID, err := chain.ParseChainID(opts.Chain.ChainID)
	if err != nil {
		return nil, err
	}

	if opts.Dial == nil {
		opts.Dial = chain.Dial
	}
	if log == nil {
		log = slog.Disabled
	}

	return &Client{
		opts:     opts,
		chainID:  chainID,
		log:      log,
		adapters: make(map[string]Adapter),
	}, nil
}

func (c *Client) ConfigureAdapter(a Adapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters[a.Name()] = a
}

// Init restores an earlier session from the first adapter that still has
// one. It is safe to call again; later calls are no-ops once it succeeded.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if len(c.adapters) == 0 {
		return ErrNoAdapter
	}

	for name, a := range c.adapters {
		creds, err := a.Restore(ctx)
		if err != nil {
			return fmt.Errorf("restore %s session: %w", name, err)
		}
		if creds == nil {
			continue
		}

		if err := c.connectLocked(ctx, a, creds); err != nil {
			return err
		}
		c.log.Debugf("Restored %s session for %s", name, c.provider.Address().Hex())
		break
	}

	c.initialized = true
	return nil
}

func (c *Client) ConnectTo(ctx context.Context, adapter string, params LoginParams) (*chain.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}

	a, ok := c.adapters[adapter]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, adapter)
	}

	if !loginProviders[params.LoginProvider] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, params.LoginProvider)
	}

	creds, err := a.Connect(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", adapter, err)
	}

	if err := c.connectLocked(ctx, a, creds); err != nil {
		return nil, err
	}
	return c.provider, nil
}

func (c *Client) connectLocked(ctx context.Context, a Adapter, creds *Credentials) error {
	if creds.PrivateKey == nil {
		return fmt.Errorf("%s released no key", a.Name())
	}

	backend, err := c.opts.Dial(ctx, c.opts.Chain.RPCTarget)
	if err != nil {
		return err
	}

	if c.provider != nil {
		chain.CloseBackend(c.provider.Backend())
	}

	c.active = a
	c.user = creds.UserInfo
	c.provider = chain.NewProvider(c.opts.Chain, backend, chain.NewSigner(creds.PrivateKey, c.chainID))
	return nil
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider != nil
}

func (c *Client) Provider() *chain.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider
}

func (c *Client) UserInfo(ctx context.Context) (models.UserInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.provider == nil {
		return models.UserInfo{}, ErrNotConnected
	}
	return c.user, nil
}

// Logout ends the adapter session. Logging out while disconnected is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil
	}

	if err := c.active.Logout(ctx); err != nil {
		return fmt.Errorf("logout %s: %w", c.active.Name(), err)
	}

	if c.provider != nil {
		chain.CloseBackend(c.provider.Backend())
	}
	c.active = nil
	c.provider = nil
	c.user = models.UserInfo{}
	return nil
}
