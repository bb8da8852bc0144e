package identity

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"betinho-miniapp/internal/models"
)

// DevKeyAdapter releases a fixed key, standing in for the hosted custody
// network on devnet.
type DevKeyAdapter struct {
	mu         sync.Mutex
	key        *ecdsa.PrivateKey
	name       string
	remembered bool
}

func NewDevKeyAdapter(hexKey, displayName string, remembered bool) (*DevKeyAdapter, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("dev private key is not set")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid dev private key: %w", err)
	}
	return &DevKeyAdapter{key: key, name: displayName, remembered: remembered}, nil
}

func (a *DevKeyAdapter) Name() string { return "devkey" }

func (a *DevKeyAdapter) Restore(ctx context.Context) (*Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.remembered {
		return nil, nil
	}
	return a.credentials("restored"), nil
}

func (a *DevKeyAdapter) Connect(ctx context.Context, params LoginParams) (*Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remembered = true
	return a.credentials(params.LoginProvider), nil
}

func (a *DevKeyAdapter) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remembered = false
	return nil
}

func (a *DevKeyAdapter) credentials(loginProvider string) *Credentials {
	return &Credentials{
		PrivateKey: a.key,
		UserInfo: models.UserInfo{
			Name:          a.name,
			LoginProvider: loginProvider,
			Verifier:      a.Name(),
		},
	}
}

// KeystoreAdapter decrypts an encrypted JSON keystore file on login.
type KeystoreAdapter struct {
	mu         sync.Mutex
	path       string
	passphrase string
	remembered bool
}

func NewKeystoreAdapter(path, passphrase string, remembered bool) *KeystoreAdapter {
	return &KeystoreAdapter{path: path, passphrase: passphrase, remembered: remembered}
}

func (a *KeystoreAdapter) Name() string { return "keystore" }

func (a *KeystoreAdapter) Restore(ctx context.Context) (*Credentials, error) {
	a.mu.Lock()
	remembered := a.remembered
	a.mu.Unlock()
	if !remembered {
		return nil, nil
	}
	return a.decrypt("restored")
}

func (a *KeystoreAdapter) Connect(ctx context.Context, params LoginParams) (*Credentials, error) {
	creds, err := a.decrypt(params.LoginProvider)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.remembered = true
	a.mu.Unlock()
	return creds, nil
}

func (a *KeystoreAdapter) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remembered = false
	return nil
}

func (a *KeystoreAdapter) decrypt(loginProvider string) (*Credentials, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	key, err := keystore.DecryptKey(data, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}

	return &Credentials{
		PrivateKey: key.PrivateKey,
		UserInfo: models.UserInfo{
			Name:          key.Address.Hex(),
			LoginProvider: loginProvider,
			Verifier:      a.Name(),
		},
	}, nil
}
