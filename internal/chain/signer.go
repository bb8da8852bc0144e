package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

func NewSigner(key *ecdsa.PrivateKey, chainID *big.Int) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
	}
}

// SignerFromHex builds a signer from a hex private key, with or without the
// 0x prefix.
func SignerFromHex(hexKey string, chainID *big.Int) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(key, chainID), nil
}

func (s *Signer) Address() common.Address { return s.address }

func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

func (s *Signer) PrivateKey() *ecdsa.PrivateKey { return s.key }

func (s *Signer) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(s.key))
}

func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
}

// SignMessage produces an EIP-191 personal signature over msg.
func (s *Signer) SignMessage(msg []byte) ([]byte, error) {
	return crypto.Sign(accounts.TextHash(msg), s.key)
}

// RecoverMessageSigner returns the address that produced sig over msg.
func RecoverMessageSigner(msg, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// ParseChainID accepts the hex form used in chain descriptors ("0x15b32")
// as well as plain decimal.
func ParseChainID(id string) (*big.Int, error) {
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") {
		v, err := hexutil.DecodeBig(strings.ToLower(id))
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", id, err)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain id %q", id)
	}
	return v, nil
}
