package main

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

func init() {
	pterm.DisableStyling()
}

func TestLatestTable(t *testing.T) {
	data := latestTable([]models.GameEvent{
		{GameAddress: "0xb4e1D3bA3AD24747Bab5ef419E02A2830E588202", BlockNumber: 17401600},
		{GameAddress: "0x0000000000000000000000000000000000000001", BlockNumber: 17401500},
	}, services.NewCatalog())

	require.Len(t, data, 3)
	assert.Equal(t, []string{"17401600", "0xb4e1D3bA3AD24747Bab5ef419E02A2830E588202", "France vs Belgium"}, data[1])
	assert.Equal(t, "-", data[2][2])

	var buf bytes.Buffer
	require.NoError(t, render(&buf, data))
	assert.Contains(t, buf.String(), "France vs Belgium")
}

func TestInfoTable(t *testing.T) {
	pool, _ := new(big.Int).SetString("2500000000000000000", 10)
	data := infoTable(models.GameInfo{
		Status:    models.GameStatus{State: models.GameStateResolved, ExpectedEnd: time.Unix(0, 0).UTC(), WinningOption: "France"},
		Options:   []string{"France", "Belgium"},
		TotalPool: pool,
	}, "CHZ")

	assert.Equal(t, []string{"Total pool", "2.5 CHZ"}, data[4])
	assert.Equal(t, []string{"Options", "France, Belgium"}, data[3])
	assert.Equal(t, []string{"Winner", "France"}, data[5])
}

func TestBetTable(t *testing.T) {
	assert.Equal(t, "0 CHZ", betTable(models.PlayerBet{}, "CHZ")[1][1])
	assert.Equal(t, []string{"Yes", "1 CHZ"}, betTable(models.PlayerBet{OptionName: "Yes", Amount: big.NewInt(1e18)}, "CHZ")[1])
}

func TestFaucetLine(t *testing.T) {
	ok := faucetLine(models.FaucetResponse{Message: "Faucet request successful", TxHash: "0xabc"}, "https://testnet.chiliscan.com/")
	assert.Contains(t, ok, "https://testnet.chiliscan.com/tx/0xabc")

	failed := faucetLine(models.FaucetResponse{Message: "Faucet request failed"}, "https://testnet.chiliscan.com/")
	assert.Contains(t, failed, "Faucet request failed")
	assert.NotContains(t, failed, "/tx/")
}

func TestSubscribeLine(t *testing.T) {
	assert.Contains(t, subscribeLine(models.FaucetResponse{Message: "subscribed"}), "Subscribed: subscribed")
	assert.NotContains(t, subscribeLine(models.FaucetResponse{Message: models.FaucetFailedMessage}), "Subscribed")
}
