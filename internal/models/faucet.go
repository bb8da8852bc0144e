package models

import "strings"

// FaucetFailedMessage is the message of every faucet response built locally
// after a transport or decode failure.
const FaucetFailedMessage = "Faucet request failed"

type FaucetResponse struct {
	Message   string `json:"message"`
	TxHash    string `json:"txHash"`
	OnNetwork bool   `json:"onNetwork,omitempty"`
}

// IsSuccess follows the faucet's own convention: a successful response says
// so in its message.
func (r FaucetResponse) IsSuccess() bool {
	return strings.Contains(r.Message, "successful")
}

func (r FaucetResponse) Failed() bool {
	return r.Message == FaucetFailedMessage
}

type FaucetLookupRequest struct {
	Address          string `json:"address"`
	BroadcastAddress string `json:"broadcastAddress"`
	ConsentProof     string `json:"consentProof,omitempty"`
}
