package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"betinho-miniapp/internal/config"
)

// Provider is the network provider handed out by the identity client once a
// user is connected: the chain it targets, a backend for it and the user's
// key material.
type Provider struct {
	chain   config.ChainConfig
	backend Backend
	signer  *Signer
}

func NewProvider(chain config.ChainConfig, backend Backend, signer *Signer) *Provider {
	return &Provider{chain: chain, backend: backend, signer: signer}
}

func (p *Provider) Chain() config.ChainConfig { return p.chain }

func (p *Provider) Backend() Backend { return p.backend }

func (p *Provider) Signer() *Signer { return p.signer }

func (p *Provider) ChainID() *big.Int { return p.signer.ChainID() }

// PrivateKey returns the hex encoded private key, as eth_private_key does.
func (p *Provider) PrivateKey() string { return p.signer.PrivateKeyHex() }

func (p *Provider) Accounts() []common.Address {
	return []common.Address{p.signer.Address()}
}

func (p *Provider) Address() common.Address { return p.signer.Address() }

func (p *Provider) Balance(ctx context.Context) (*big.Int, error) {
	bal, err := p.backend.BalanceAt(ctx, p.signer.Address(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return bal, nil
}

// DeriveSigner returns a fresh signer over the same key material.
func (p *Provider) DeriveSigner() (*Signer, error) {
	return SignerFromHex(p.PrivateKey(), p.ChainID())
}
