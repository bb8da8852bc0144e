package services

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/contracts"
	"betinho-miniapp/internal/models"
)

const (
	pickConfirmations   = 2
	defaultConfirmation = 1
)

// SessionReader is the slice of session state the directory needs.
type SessionReader interface {
	Initialized() bool
	Connected() bool
	Provider() *chain.Provider
}

type LedgerConfig struct {
	FactoryAddress   string
	OrderBookAddress string
	// ReadRPCURL is the dedicated endpoint used for game handles and event
	// discovery. Empty means the session provider's own backend.
	ReadRPCURL  string
	FromBlock   uint64
	ConfirmPoll time.Duration
	Dial        chain.Dialer
}

// GameDirectory owns the factory and order book bindings and the single
// address keyed registry of game handles.
type GameDirectory struct {
	cfg     LedgerConfig
	session SessionReader
	catalog *Catalog
	log     slog.Logger

	mu          sync.RWMutex
	boundTo     *chain.Provider
	factory     *contracts.Factory
	orderBook   *contracts.OrderBook
	games       map[common.Address]*contracts.Game
	readBackend chain.Backend
	ownsRead    bool
	broadcaster Broadcaster
}

func NewGameDirectory(cfg LedgerConfig, session SessionReader, catalog *Catalog, log slog.Logger) *GameDirectory {
	if cfg.Dial == nil {
		cfg.Dial = chain.Dial
	}
	if cfg.ConfirmPoll <= 0 {
		cfg.ConfirmPoll = chain.DefaultConfirmPoll
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	if log == nil {
		log = slog.Disabled
	}
	return &GameDirectory{
		cfg:     cfg,
		session: session,
		catalog: catalog,
		log:     log,
		games:   make(map[common.Address]*contracts.Game),
	}
}

func (d *GameDirectory) SetBroadcaster(b Broadcaster) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcaster = b
}

func (d *GameDirectory) provider() (*chain.Provider, error) {
	if !d.session.Initialized() || !d.session.Connected() {
		return nil, ErrNotConnected
	}
	p := d.session.Provider()
	if p == nil {
		return nil, ErrNotConnected
	}
	return p, nil
}

// resetLocked drops every binding made for an earlier provider.
func (d *GameDirectory) resetLocked(p *chain.Provider) {
	if d.boundTo == p {
		return
	}
	if d.ownsRead {
		chain.CloseBackend(d.readBackend)
	}
	d.boundTo = p
	d.factory = nil
	d.orderBook = nil
	d.readBackend = nil
	d.ownsRead = false
	d.games = make(map[common.Address]*contracts.Game)
}

// Init binds the factory and order book for the current provider. Calling
// it again for the same provider is a no-op. A fresh binding checks the
// order book link and logs a mismatch without failing.
func (d *GameDirectory) Init(ctx context.Context) error {
	p, err := d.provider()
	if err != nil {
		return err
	}

	bound, err := d.bind(p)
	if err != nil || !bound {
		return err
	}

	if err := d.VerifyOrderBook(ctx); err != nil {
		d.log.Warnf("Order book check failed: %v", err)
	}
	return nil
}

// bind reports whether it made a new binding for p.
func (d *GameDirectory) bind(p *chain.Provider) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked(p)
	if d.factory != nil {
		return false, nil
	}

	signer, err := p.DeriveSigner()
	if err != nil {
		return false, fmt.Errorf("failed to derive signer: %w", err)
	}

	factory := contracts.NewFactory(common.HexToAddress(d.cfg.FactoryAddress), p.Backend(), signer)
	factory.WithPollInterval(d.cfg.ConfirmPoll)
	orderBook := contracts.NewOrderBook(common.HexToAddress(d.cfg.OrderBookAddress), p.Backend(), signer)
	orderBook.WithPollInterval(d.cfg.ConfirmPoll)

	d.factory = factory
	d.orderBook = orderBook
	d.log.Debugf("Bound factory %s and order book %s for %s",
		d.cfg.FactoryAddress, d.cfg.OrderBookAddress, p.Address().Hex())
	return true, nil
}

func (d *GameDirectory) currentFactory() *contracts.Factory {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p := d.session.Provider(); p == nil || p != d.boundTo {
		return nil
	}
	return d.factory
}

// CreateGame deploys a game under a fresh random salt and returns the new
// contract address taken from the creation event.
func (d *GameDirectory) CreateGame(ctx context.Context, resolver string, expectedEnd time.Time, optionNames []string) (string, error) {
	factory := d.currentFactory()
	if factory == nil {
		return "", ErrFactoryNotInitialized
	}
	if !common.IsHexAddress(resolver) {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, resolver)
	}

	salt, err := models.GenerateSalt()
	if err != nil {
		return "", err
	}

	ptx, err := factory.CreateGame(ctx, salt, common.HexToAddress(resolver), big.NewInt(expectedEnd.Unix()), optionNames)
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	receipt, err := ptx.Wait(ctx, defaultConfirmation)
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	addr, ok := factory.GameCreatedAddress(receipt)
	if !ok {
		return "", ErrGameCreatedEventMissing
	}

	d.log.Infof("Game created at %s (tx %s)", addr.Hex(), receipt.TxHash.Hex())
	return addr.Hex(), nil
}

func (d *GameDirectory) GetGameAddress(ctx context.Context, salt [32]byte) (string, error) {
	factory := d.currentFactory()
	if factory == nil {
		return "", ErrFactoryNotInitialized
	}

	addr, err := factory.GetGameAddress(ctx, salt)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

func (d *GameDirectory) readBackendLocked(ctx context.Context, p *chain.Provider) (chain.Backend, error) {
	if d.readBackend != nil {
		return d.readBackend, nil
	}
	if d.cfg.ReadRPCURL == "" {
		d.readBackend = p.Backend()
		return d.readBackend, nil
	}

	b, err := d.cfg.Dial(ctx, d.cfg.ReadRPCURL)
	if err != nil {
		return nil, err
	}
	d.readBackend = b
	d.ownsRead = true
	return b, nil
}

// LoadGame returns the registry handle for address, creating it on first use.
func (d *GameDirectory) LoadGame(ctx context.Context, address string) (*contracts.Game, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	p, err := d.provider()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked(p)

	key := common.HexToAddress(address)
	if g, ok := d.games[key]; ok {
		return g, nil
	}

	backend, err := d.readBackendLocked(ctx, p)
	if err != nil {
		return nil, err
	}

	signer, err := p.DeriveSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to derive signer: %w", err)
	}

	g := contracts.NewGame(key, backend, signer)
	g.WithPollInterval(d.cfg.ConfirmPoll)
	d.games[key] = g
	return g, nil
}

// loaded looks a game up without creating it.
func (d *GameDirectory) loaded(address string) (*contracts.Game, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if p := d.session.Provider(); p == nil || p != d.boundTo {
		return nil, ErrGameNotLoaded
	}
	if !common.IsHexAddress(address) {
		return nil, ErrGameNotLoaded
	}
	g, ok := d.games[common.HexToAddress(address)]
	if !ok {
		return nil, ErrGameNotLoaded
	}
	return g, nil
}

// PickOption places a bet of amount (decimal, native units) on option. The
// underlying failure is logged; callers only see ErrPickOptionFailed.
func (d *GameDirectory) PickOption(ctx context.Context, gameAddress, option, amount string) (string, error) {
	value, err := models.ParseEther(amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if value.Sign() <= 0 {
		return "", fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}

	g, err := d.LoadGame(ctx, gameAddress)
	if err != nil {
		return "", err
	}

	ptx, err := g.PickOption(ctx, option, value)
	if err != nil {
		d.log.Errorf("Error picking option %q on %s: %v", option, gameAddress, err)
		return "", ErrPickOptionFailed
	}

	receipt, err := ptx.Wait(ctx, pickConfirmations)
	if err != nil {
		d.log.Errorf("Error confirming pick on %s: %v", gameAddress, err)
		return "", ErrPickOptionFailed
	}

	hash := receipt.TxHash.Hex()
	d.log.Infof("Picked %q with %s on %s (tx %s)", option, amount, gameAddress, hash)

	if b := d.currentBroadcaster(); b != nil {
		b.BroadcastBetPlaced(g.Address().Hex(), BetPlaced{
			Player: g.Signer().Address().Hex(),
			Option: option,
			Amount: value.String(),
			TxHash: hash,
		})
	}
	return hash, nil
}

func (d *GameDirectory) currentBroadcaster() Broadcaster {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.broadcaster
}

func (d *GameDirectory) ResolveGame(ctx context.Context, gameAddress, winningOption string) (string, error) {
	g, err := d.loaded(gameAddress)
	if err != nil {
		return "", err
	}

	ptx, err := g.ResolveGame(ctx, winningOption)
	if err != nil {
		return "", fmt.Errorf("failed to resolve game: %w", err)
	}

	receipt, err := ptx.Wait(ctx, defaultConfirmation)
	if err != nil {
		return "", fmt.Errorf("failed to resolve game: %w", err)
	}

	hash := receipt.TxHash.Hex()
	if b := d.currentBroadcaster(); b != nil {
		b.BroadcastGameResolved(g.Address().Hex(), winningOption, hash)
	}
	return hash, nil
}

func (d *GameDirectory) ClaimReward(ctx context.Context, gameAddress string) (string, error) {
	g, err := d.loaded(gameAddress)
	if err != nil {
		return "", err
	}

	ptx, err := g.ClaimReward(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to claim reward: %w", err)
	}

	receipt, err := ptx.Wait(ctx, defaultConfirmation)
	if err != nil {
		return "", fmt.Errorf("failed to claim reward: %w", err)
	}
	return receipt.TxHash.Hex(), nil
}

// GetGameInfo reads status, options and pool of a loaded game concurrently.
func (d *GameDirectory) GetGameInfo(ctx context.Context, gameAddress string) (models.GameInfo, error) {
	g, err := d.loaded(gameAddress)
	if err != nil {
		return models.GameInfo{}, err
	}

	var info models.GameInfo
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s, err := g.Status(ectx)
		info.Status = s
		return err
	})
	eg.Go(func() error {
		o, err := g.OptionNames(ectx)
		info.Options = o
		return err
	})
	eg.Go(func() error {
		t, err := g.TotalPool(ectx)
		info.TotalPool = t
		return err
	})

	if err := eg.Wait(); err != nil {
		return models.GameInfo{}, fmt.Errorf("failed to get game info: %w", err)
	}
	return info, nil
}

// GetLatestGames returns the count most recently created games, newest
// first, from every creation event since the configured start block.
func (d *GameDirectory) GetLatestGames(ctx context.Context, count int) ([]models.GameEvent, error) {
	if d.currentFactory() == nil {
		return nil, ErrFactoryNotInitialized
	}

	p, err := d.provider()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	backend, err := d.readBackendLocked(ctx, p)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if count <= 0 {
		return []models.GameEvent{}, nil
	}

	reader := contracts.NewFactory(common.HexToAddress(d.cfg.FactoryAddress), backend, nil)
	events, err := reader.GameCreatedLogs(ctx, d.cfg.FromBlock)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].BlockNumber > events[j].BlockNumber
	})
	if len(events) > count {
		events = events[:count]
	}
	return events, nil
}

// GetPlayerBets reads player's bet on a game, loading it if needed. An
// empty player means the connected wallet.
func (d *GameDirectory) GetPlayerBets(ctx context.Context, gameAddress, player string) (models.PlayerBet, error) {
	g, err := d.LoadGame(ctx, gameAddress)
	if err != nil {
		return models.PlayerBet{}, err
	}

	who := g.Signer().Address()
	if player != "" {
		if !common.IsHexAddress(player) {
			return models.PlayerBet{}, fmt.Errorf("%w: %s", ErrInvalidAddress, player)
		}
		who = common.HexToAddress(player)
	}

	bet, err := g.PlayerBet(ctx, who)
	if err != nil {
		return models.PlayerBet{}, fmt.Errorf("failed to get player bets: %w", err)
	}
	return bet, nil
}

// VerifyOrderBook checks the order book points back at the configured
// factory.
func (d *GameDirectory) VerifyOrderBook(ctx context.Context) error {
	ob := d.OrderBook()
	if ob == nil {
		return ErrFactoryNotInitialized
	}

	linked, err := ob.GameFactory(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(linked.Hex(), d.cfg.FactoryAddress) {
		return fmt.Errorf("order book is linked to factory %s, want %s", linked.Hex(), d.cfg.FactoryAddress)
	}
	return nil
}

func (d *GameDirectory) Factory() *contracts.Factory { return d.currentFactory() }

func (d *GameDirectory) OrderBook() *contracts.OrderBook {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p := d.session.Provider(); p == nil || p != d.boundTo {
		return nil
	}
	return d.orderBook
}

// Games snapshots the registry keyed by checksummed address.
func (d *GameDirectory) Games() map[string]*contracts.Game {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]*contracts.Game, len(d.games))
	for addr, g := range d.games {
		out[addr.Hex()] = g
	}
	return out
}

func (d *GameDirectory) Catalog() *Catalog { return d.catalog }
