package models_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betinho-miniapp/internal/models"
)

func TestParseEther(t *testing.T) {
	wei, err := models.ParseEther("1.5")
	require.NoError(t, err)

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(wei))

	wei, err = models.ParseEther("2")
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", wei.String())

	wei, err = models.ParseEther("0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "1", wei.String())
}

func TestParseEtherRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		"", "abc", "1e18", "0.0000000000000000001", "1/2",
		"0x10", "0b11", "0o7", "+1.5", "-1", "1.2.3", "1_000",
	} {
		_, err := models.ParseEther(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestFormatEther(t *testing.T) {
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", models.FormatEther(v))
	assert.Equal(t, "0", models.FormatEther(big.NewInt(0)))
	assert.Equal(t, "0", models.FormatEther(nil))
	assert.Equal(t, "3", models.FormatEther(new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))))
}

func TestFormatWalletAddress(t *testing.T) {
	addr := "0x3F11b27F323b62B159D2642964fa27C46C841897"
	assert.Equal(t, "0x3F11...1897", models.FormatWalletAddress(addr, 4))
	assert.Equal(t, "0x3F1...897", models.FormatWalletAddress(addr, 3))
	assert.Equal(t, "0x3F11...1897", models.FormatWalletAddress(addr, 0))
	assert.Equal(t, "0xabc", models.FormatWalletAddress("0xabc", 4))
}

func TestFaucetResponseSuccess(t *testing.T) {
	resp := models.FaucetResponse{Message: "Faucet request successful", TxHash: "0xabc123"}
	assert.True(t, resp.IsSuccess())

	resp = models.FaucetResponse{Message: "Faucet request failed"}
	assert.False(t, resp.IsSuccess())
}

func TestTxURL(t *testing.T) {
	assert.Equal(t, "https://testnet.chiliscan.com/tx/0xabc", models.TxURL("https://testnet.chiliscan.com/", "0xabc"))
	assert.Equal(t, "", models.TxURL("https://testnet.chiliscan.com/", ""))
}

func TestGenerateSaltIsRandom(t *testing.T) {
	a, err := models.GenerateSalt()
	require.NoError(t, err)
	b, err := models.GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
