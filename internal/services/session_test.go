package services_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/chain/chaintest"
	"betinho-miniapp/internal/config"
	"betinho-miniapp/internal/identity"
	"betinho-miniapp/internal/messaging"
	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

var spicyID = big.NewInt(88882)

type fakeIdentity struct {
	mu sync.Mutex

	initErr    error
	connectErr error
	restored   *chain.Provider
	next       *chain.Provider

	provider    *chain.Provider
	connects    int
	logouts     int
	lastParams  identity.LoginParams
	lastAdapter string
}

func (f *fakeIdentity) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return f.initErr
	}
	f.provider = f.restored
	return nil
}

func (f *fakeIdentity) ConnectTo(ctx context.Context, adapter string, params identity.LoginParams) (*chain.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.lastAdapter = adapter
	f.lastParams = params
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.provider = f.next
	return f.provider, nil
}

func (f *fakeIdentity) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provider != nil
}

func (f *fakeIdentity) Provider() *chain.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provider
}

func (f *fakeIdentity) UserInfo(ctx context.Context) (models.UserInfo, error) {
	return models.UserInfo{Name: "tester", LoginProvider: "google"}, nil
}

func (f *fakeIdentity) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.provider = nil
	return nil
}

func newProvider(t *testing.T, backend chain.Backend) *chain.Provider {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	if backend == nil {
		backend = chaintest.NewBackend(spicyID)
	}
	return chain.NewProvider(config.ChilizSpicyTestnet, backend, chain.NewSigner(key, spicyID))
}

func identityOf(c services.IdentityClient) services.IdentityFactory {
	return func(context.Context) (services.IdentityClient, error) { return c, nil }
}

func countingMessaging(calls *int, err error) services.MessagingFactory {
	return func(ctx context.Context, p *chain.Provider) (*messaging.Client, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		signer, derr := p.DeriveSigner()
		if derr != nil {
			return nil, derr
		}
		return messaging.New(nil, "dev", signer, nil), nil
	}
}

func TestInitializeWithoutRestoredSession(t *testing.T) {
	fi := &fakeIdentity{}
	var calls int
	s := services.NewSessionManager(identityOf(fi), countingMessaging(&calls, nil), "devkey", "google", nil)

	assert.False(t, s.Initialized())
	assert.Equal(t, services.InitPending, s.Status().Phase)

	s.Initialize(context.Background())

	assert.True(t, s.Initialized())
	assert.Equal(t, services.InitReady, s.Status().Phase)
	assert.False(t, s.Connected())
	assert.Nil(t, s.Provider())
	assert.Nil(t, s.Messaging())
	assert.Zero(t, calls)
}

func TestInitializeRestoresSessionAndMessaging(t *testing.T) {
	p := newProvider(t, nil)
	fi := &fakeIdentity{restored: p}
	var calls int
	s := services.NewSessionManager(identityOf(fi), countingMessaging(&calls, nil), "devkey", "google", nil)

	s.Initialize(context.Background())

	assert.True(t, s.Connected())
	assert.Same(t, p, s.Provider())
	require.NotNil(t, s.Messaging())
	assert.Equal(t, p.Address(), s.Messaging().Address())
	assert.Equal(t, p.Address().Hex(), s.Address())
	assert.Equal(t, 1, calls)
}

func TestInitializeRunsOnce(t *testing.T) {
	var built int
	factory := func(context.Context) (services.IdentityClient, error) {
		built++
		return &fakeIdentity{}, nil
	}
	s := services.NewSessionManager(factory, nil, "devkey", "google", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Initialize(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, built)
	assert.True(t, s.Initialized())
}

func TestInitializeFailureIsRecorded(t *testing.T) {
	for name, factory := range map[string]services.IdentityFactory{
		"construct": func(context.Context) (services.IdentityClient, error) {
			return nil, errors.New("bad client id")
		},
		"init": identityOf(&fakeIdentity{initErr: errors.New("bad client id")}),
	} {
		t.Run(name, func(t *testing.T) {
			s := services.NewSessionManager(factory, nil, "devkey", "google", nil)
			s.Initialize(context.Background())
			s.Initialize(context.Background())

			assert.True(t, s.Initialized())
			assert.False(t, s.Connected())
			st := s.Status()
			assert.Equal(t, services.InitFailed, st.Phase)
			assert.Contains(t, st.Reason, "bad client id")
		})
	}
}

func TestMessagingFailureKeepsProvider(t *testing.T) {
	p := newProvider(t, nil)
	var calls int
	s := services.NewSessionManager(identityOf(&fakeIdentity{restored: p}),
		countingMessaging(&calls, errors.New("network down")), "devkey", "google", nil)

	s.Initialize(context.Background())

	assert.Equal(t, services.InitReady, s.Status().Phase)
	assert.True(t, s.Connected())
	assert.Same(t, p, s.Provider())
	assert.Nil(t, s.Messaging())
}

func TestWaitAndReady(t *testing.T) {
	s := services.NewSessionManager(identityOf(&fakeIdentity{}), nil, "devkey", "google", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	go s.Initialize(context.Background())

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("session never became ready")
	}
	assert.NoError(t, s.Wait(context.Background()))
}

func TestLoginBeforeInitialize(t *testing.T) {
	s := services.NewSessionManager(identityOf(&fakeIdentity{}), nil, "devkey", "google", nil)

	assert.ErrorIs(t, s.Login(context.Background()), services.ErrNotInitialized)
	assert.False(t, s.Connected())
	assert.False(t, s.Initialized())
}

func TestLoginAndLogout(t *testing.T) {
	p := newProvider(t, nil)
	fi := &fakeIdentity{next: p}
	var calls int
	s := services.NewSessionManager(identityOf(fi), countingMessaging(&calls, nil), "devkey", "google", nil)
	s.Initialize(context.Background())

	require.NoError(t, s.Login(context.Background()))
	assert.Equal(t, "devkey", fi.lastAdapter)
	assert.Equal(t, "google", fi.lastParams.LoginProvider)
	assert.True(t, s.Connected())
	assert.Same(t, p, s.Provider())
	assert.NotNil(t, s.Messaging())

	snap := s.Snapshot()
	assert.True(t, snap.Connected)
	assert.True(t, snap.Messaging)
	assert.Equal(t, p.Address().Hex(), snap.Address)

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.Connected())
	assert.Nil(t, s.Provider())
	assert.Nil(t, s.Messaging())
	assert.True(t, s.Initialized())

	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, 2, fi.logouts)
	assert.False(t, s.Connected())
}

func TestLoginFailureLeavesSessionDisconnected(t *testing.T) {
	fi := &fakeIdentity{connectErr: errors.New("popup closed")}
	s := services.NewSessionManager(identityOf(fi), nil, "devkey", "google", nil)
	s.Initialize(context.Background())

	err := s.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "popup closed")
	assert.False(t, s.Connected())
	assert.Nil(t, s.Provider())
}

func TestLogoutWithoutIdentityClient(t *testing.T) {
	s := services.NewSessionManager(func(context.Context) (services.IdentityClient, error) {
		return nil, errors.New("no client")
	}, nil, "devkey", "google", nil)

	before := s.Snapshot()
	assert.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, before, s.Snapshot())

	s.Initialize(context.Background())
	before = s.Snapshot()
	assert.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, before, s.Snapshot())
}

func TestBalance(t *testing.T) {
	backend := chaintest.NewBackend(spicyID)
	p := newProvider(t, backend)
	backend.SetBalance(p.Address(), big.NewInt(2_500_000_000_000_000_000))

	s := services.NewSessionManager(identityOf(&fakeIdentity{restored: p}), nil, "devkey", "google", nil)

	_, err := s.Balance(context.Background())
	assert.ErrorIs(t, err, services.ErrNotConnected)

	s.Initialize(context.Background())
	bal, err := s.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.5", bal.Formatted)
	assert.Equal(t, "CHZ", bal.Ticker)
	assert.Equal(t, p.Address().Hex(), bal.Address)
}

func TestUserInfo(t *testing.T) {
	s := services.NewSessionManager(identityOf(&fakeIdentity{}), nil, "devkey", "google", nil)

	_, err := s.UserInfo(context.Background())
	assert.ErrorIs(t, err, services.ErrNotInitialized)

	s.Initialize(context.Background())
	info, err := s.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tester", info.Name)
}
