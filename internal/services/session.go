package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/redis/go-redis/v9"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/config"
	"betinho-miniapp/internal/identity"
	"betinho-miniapp/internal/messaging"
	"betinho-miniapp/internal/models"
)

// IdentityClient is the key-custody surface the session relies on.
type IdentityClient interface {
	Init(ctx context.Context) error
	ConnectTo(ctx context.Context, adapter string, params identity.LoginParams) (*chain.Provider, error)
	Connected() bool
	Provider() *chain.Provider
	UserInfo(ctx context.Context) (models.UserInfo, error)
	Logout(ctx context.Context) error
}

// IdentityFactory constructs the identity client with its login adapter
// already configured.
type IdentityFactory func(ctx context.Context) (IdentityClient, error)

type MessagingFactory func(ctx context.Context, p *chain.Provider) (*messaging.Client, error)

type InitPhase int

const (
	InitPending InitPhase = iota
	InitReady
	InitFailed
)

func (p InitPhase) String() string {
	switch p {
	case InitPending:
		return "pending"
	case InitReady:
		return "ready"
	case InitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InitStatus separates "still loading" from "loaded but failed".
type InitStatus struct {
	Phase  InitPhase `json:"phase"`
	Reason string    `json:"reason,omitempty"`
}

type SessionSnapshot struct {
	Initialized bool       `json:"initialized"`
	Connected   bool       `json:"connected"`
	Status      InitStatus `json:"status"`
	Address     string     `json:"address,omitempty"`
	Messaging   bool       `json:"messaging"`
}

type SessionManager struct {
	mu sync.RWMutex

	newIdentity   IdentityFactory
	newMessaging  MessagingFactory
	adapter       string
	loginProvider string
	log           slog.Logger

	once  sync.Once
	ready chan struct{}

	identity    IdentityClient
	provider    *chain.Provider
	messaging   *messaging.Client
	connected   bool
	initialized bool
	status      InitStatus
}

// NewSessionManager wires the session. newMessaging may be nil, in which
// case no messaging client is ever derived.
func NewSessionManager(newIdentity IdentityFactory, newMessaging MessagingFactory, adapter, loginProvider string, log slog.Logger) *SessionManager {
	if log == nil {
		log = slog.Disabled
	}
	return &SessionManager{
		newIdentity:   newIdentity,
		newMessaging:  newMessaging,
		adapter:       adapter,
		loginProvider: loginProvider,
		log:           log,
		ready:         make(chan struct{}),
	}
}

// Initialize runs the startup sequence once. Errors never escape: they are
// logged and recorded in Status, and the session is marked initialized
// either way.
func (s *SessionManager) Initialize(ctx context.Context) {
	s.once.Do(func() {
		status := s.initialize(ctx)

		s.mu.Lock()
		s.status = status
		s.initialized = true
		s.mu.Unlock()

		close(s.ready)
	})
}

func (s *SessionManager) initialize(ctx context.Context) InitStatus {
	client, err := s.newIdentity(ctx)
	if err != nil {
		s.log.Errorf("Error initializing identity client: %v", err)
		return InitStatus{Phase: InitFailed, Reason: err.Error()}
	}

	s.mu.Lock()
	s.identity = client
	s.mu.Unlock()

	if err := client.Init(ctx); err != nil {
		s.log.Errorf("Error initializing identity client: %v", err)
		return InitStatus{Phase: InitFailed, Reason: err.Error()}
	}

	provider := client.Provider()
	connected := client.Connected()

	s.mu.Lock()
	s.provider = provider
	s.connected = connected
	s.mu.Unlock()

	if connected && provider != nil {
		s.attachMessaging(ctx, provider)
	}

	return InitStatus{Phase: InitReady}
}

func (s *SessionManager) attachMessaging(ctx context.Context, provider *chain.Provider) {
	if s.newMessaging == nil {
		return
	}

	mc, err := s.newMessaging(ctx, provider)
	if err != nil {
		s.log.Errorf("Error initializing messaging: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == provider {
		s.messaging = mc
	}
}

// Ready is closed once Initialize has finished.
func (s *SessionManager) Ready() <-chan struct{} { return s.ready }

func (s *SessionManager) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SessionManager) Login(ctx context.Context) error {
	s.mu.RLock()
	client := s.identity
	s.mu.RUnlock()

	if client == nil {
		s.log.Infof("Identity client not initialized yet")
		return ErrNotInitialized
	}

	provider, err := client.ConnectTo(ctx, s.adapter, identity.LoginParams{LoginProvider: s.loginProvider})
	if err != nil {
		s.log.Errorf("Error logging in: %v", err)
		return fmt.Errorf("login failed: %w", err)
	}

	s.mu.Lock()
	s.provider = provider
	s.connected = client.Connected()
	s.messaging = nil
	s.mu.Unlock()

	s.log.Infof("Logged in as %s", provider.Address().Hex())
	s.attachMessaging(ctx, provider)
	return nil
}

// Logout is idempotent; without an identity client it only logs.
func (s *SessionManager) Logout(ctx context.Context) error {
	s.mu.RLock()
	client := s.identity
	s.mu.RUnlock()

	if client == nil {
		s.log.Infof("Identity client not initialized yet")
		return nil
	}

	if err := client.Logout(ctx); err != nil {
		s.log.Errorf("Error logging out: %v", err)
		return err
	}

	s.mu.Lock()
	s.provider = nil
	s.messaging = nil
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *SessionManager) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *SessionManager) Status() InitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *SessionManager) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *SessionManager) Provider() *chain.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// Address is the connected wallet address, empty when disconnected.
func (s *SessionManager) Address() string {
	if p := s.Provider(); p != nil {
		return p.Address().Hex()
	}
	return ""
}

func (s *SessionManager) Messaging() *messaging.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messaging
}

func (s *SessionManager) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := SessionSnapshot{
		Initialized: s.initialized,
		Connected:   s.connected,
		Status:      s.status,
		Messaging:   s.messaging != nil,
	}
	if s.provider != nil {
		snap.Address = s.provider.Address().Hex()
	}
	return snap
}

func (s *SessionManager) UserInfo(ctx context.Context) (models.UserInfo, error) {
	s.mu.RLock()
	client := s.identity
	s.mu.RUnlock()

	if client == nil {
		return models.UserInfo{}, ErrNotInitialized
	}
	return client.UserInfo(ctx)
}

func (s *SessionManager) Balance(ctx context.Context) (models.Balance, error) {
	p := s.Provider()
	if p == nil {
		return models.Balance{}, ErrNotConnected
	}

	wei, err := p.Balance(ctx)
	if err != nil {
		return models.Balance{}, err
	}

	return models.Balance{
		Address:   p.Address().Hex(),
		Wei:       wei,
		Formatted: models.FormatEther(wei),
		Ticker:    p.Chain().Ticker,
	}, nil
}

// IdentityFromConfig builds the identity factory for the configured adapter.
func IdentityFromConfig(cfg *config.Config, log slog.Logger) IdentityFactory {
	return func(ctx context.Context) (IdentityClient, error) {
		client, err := identity.New(identity.Options{
			ClientID: cfg.ClientID,
			Network:  cfg.IdentityNetwork,
			Chain:    cfg.Chain,
		}, log)
		if err != nil {
			return nil, err
		}

		switch cfg.LoginAdapter {
		case "keystore":
			client.ConfigureAdapter(identity.NewKeystoreAdapter(cfg.KeystorePath, cfg.KeystorePassphrase, cfg.AutoConnect))
		default:
			a, err := identity.NewDevKeyAdapter(cfg.DevPrivateKey, "betinho player", cfg.AutoConnect)
			if err != nil {
				return nil, err
			}
			client.ConfigureAdapter(a)
		}

		return client, nil
	}
}

// MessagingFromRedis derives the chat client from the provider's key.
func MessagingFromRedis(rdb *redis.Client, env string, log slog.Logger) MessagingFactory {
	return func(ctx context.Context, p *chain.Provider) (*messaging.Client, error) {
		signer, err := p.DeriveSigner()
		if err != nil {
			return nil, err
		}
		return messaging.New(rdb, env, signer, log), nil
	}
}
