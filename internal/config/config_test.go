package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToSpicyTestnet(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ChilizSpicyTestnet, cfg.Chain)
	assert.Equal(t, "sapphire_devnet", cfg.IdentityNetwork)
	assert.Equal(t, "google", cfg.LoginProvider)
	assert.Equal(t, uint64(17401495), cfg.DiscoveryFromBlock)
	assert.Equal(t, "dev", cfg.MessagingEnv)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("BETINHO_PORT", "9090")
	t.Setenv("BETINHO_CHAIN_RPC_TARGET", "http://127.0.0.1:8545")
	t.Setenv("BETINHO_CONFIRM_POLL", "250ms")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr())
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Chain.RPCTarget)
	assert.Equal(t, 250*time.Millisecond, cfg.ConfirmPoll)
}

func TestListenAddrOverride(t *testing.T) {
	t.Setenv("BETINHO_HOST", "0.0.0.0")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
}

func TestValidateRejectsUnknownAdapter(t *testing.T) {
	t.Setenv("BETINHO_LOGIN_ADAPTER", "metamask")

	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown login adapter")
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	t.Setenv("BETINHO_ENV", "production")

	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}
