package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/decred/slog"

	"betinho-miniapp/internal/chain"
	"betinho-miniapp/internal/models"
)

// FaucetClient talks to the external testnet faucet. Failures never surface
// as errors; they come back as a response carrying models.FaucetFailedMessage.
type FaucetClient struct {
	baseURL string
	http    *http.Client
	log     slog.Logger
}

func NewFaucetClient(baseURL string, httpClient *http.Client, log slog.Logger) *FaucetClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Disabled
	}
	return &FaucetClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

func (f *FaucetClient) Lookup(ctx context.Context, address, broadcastAddress string) models.FaucetResponse {
	return f.post(ctx, "/lookup", models.FaucetLookupRequest{Address: address, BroadcastAddress: broadcastAddress})
}

func (f *FaucetClient) Subscribe(ctx context.Context, address, broadcastAddress, consentProof string) models.FaucetResponse {
	return f.post(ctx, "/subscribe", models.FaucetLookupRequest{
		Address:          address,
		BroadcastAddress: broadcastAddress,
		ConsentProof:     consentProof,
	})
}

// SubscribeNews opts the signer's wallet into a broadcast channel. The
// faucet must already see the wallet on the messaging network; the
// subscription then carries a signed consent proof.
func (f *FaucetClient) SubscribeNews(ctx context.Context, signer *chain.Signer, broadcastAddress string, now time.Time) (models.FaucetResponse, error) {
	address := signer.Address().Hex()

	lookup := f.Lookup(ctx, address, broadcastAddress)
	if !lookup.OnNetwork {
		return lookup, ErrNotOnNetwork
	}

	proof, err := ConsentProof(signer, now)
	if err != nil {
		return models.FaucetResponse{}, err
	}

	return f.Subscribe(ctx, address, broadcastAddress, proof), nil
}

// Fund asks the faucet to send testnet funds to address.
func (f *FaucetClient) Fund(ctx context.Context, address string) models.FaucetResponse {
	u := f.baseURL + "?" + url.Values{"address": {address}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return f.failed("fund", err)
	}
	return f.do(req, "fund")
}

func (f *FaucetClient) post(ctx context.Context, path string, body interface{}) models.FaucetResponse {
	data, err := json.Marshal(body)
	if err != nil {
		return f.failed(path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return f.failed(path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return f.do(req, path)
}

func (f *FaucetClient) do(req *http.Request, op string) models.FaucetResponse {
	resp, err := f.http.Do(req)
	if err != nil {
		return f.failed(op, err)
	}
	defer resp.Body.Close()

	var out models.FaucetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return f.failed(op, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}

	f.log.Debugf("Faucet %s: %q %s", op, out.Message, out.TxHash)
	return out
}

func (f *FaucetClient) failed(op string, err error) models.FaucetResponse {
	f.log.Errorf("Faucet %s failed: %v", op, err)
	return models.FaucetResponse{Message: models.FaucetFailedMessage}
}
