package services

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"google.golang.org/protobuf/encoding/protowire"

	"betinho-miniapp/internal/chain"
)

const consentProofVersion = 1

// ConsentMessage is the text a wallet signs to let a broadcast channel
// message it. The date renders like JavaScript's Date.toUTCString.
func ConsentMessage(address string, ts time.Time) string {
	return "XMTP : Grant inbox consent to sender\n" +
		"\n" +
		fmt.Sprintf("Current Time: %s\n", ts.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")) +
		fmt.Sprintf("From Address: %s\n", address) +
		"\n" +
		"For more info: https://xmtp.org/signatures/"
}

// ConsentProof signs ConsentMessage for the signer's address and returns the
// base64 protobuf payload the subscribe endpoint expects:
// signature (1, string), timestamp in ms (2, uint64), version (3, enum).
func ConsentProof(signer *chain.Signer, now time.Time) (string, error) {
	msg := ConsentMessage(signer.Address().Hex(), now)

	sig, err := signer.SignMessage([]byte(msg))
	if err != nil {
		return "", fmt.Errorf("failed to sign consent message: %w", err)
	}
	// Wallets publish the recovery id as 27/28.
	sig[64] += 27

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, hexutil.Encode(sig))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(now.UnixMilli()))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, consentProofVersion)

	return base64.StdEncoding.EncodeToString(b), nil
}
