package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ChainConfig struct {
	ChainNamespace   string `mapstructure:"chain_namespace"`
	ChainID          string `mapstructure:"chain_id"` // hex, as the identity provider expects it
	RPCTarget        string `mapstructure:"rpc_target"`
	DisplayName      string `mapstructure:"display_name"`
	BlockExplorerURL string `mapstructure:"block_explorer_url"`
	Ticker           string `mapstructure:"ticker"`
	TickerName       string `mapstructure:"ticker_name"`
}

type Config struct {
	Env      string `mapstructure:"env"`
	// Host defaults to loopback: the server holds the wallet key and any
	// caller that reaches it can log in as that wallet.
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`

	RedisURL  string `mapstructure:"redis_url"`
	RedisPass string `mapstructure:"redis_pass"`
	RedisDB   int    `mapstructure:"redis_db"`

	// Identity / key custody
	ClientID           string `mapstructure:"client_id"`
	IdentityNetwork    string `mapstructure:"identity_network"`
	LoginAdapter       string `mapstructure:"login_adapter"`
	LoginProvider      string `mapstructure:"login_provider"`
	DevPrivateKey      string `mapstructure:"dev_private_key"`
	KeystorePath       string `mapstructure:"keystore_path"`
	KeystorePassphrase string `mapstructure:"keystore_passphrase"`
	AutoConnect        bool   `mapstructure:"auto_connect"`

	Chain ChainConfig `mapstructure:"chain"`

	// Dedicated endpoint for game handles and log scans.
	ReadRPCURL         string        `mapstructure:"read_rpc_url"`
	GameFactoryAddress string        `mapstructure:"game_factory_address"`
	OrderBookAddress   string        `mapstructure:"order_book_address"`
	DiscoveryFromBlock uint64        `mapstructure:"discovery_from_block"`
	ConfirmPoll        time.Duration `mapstructure:"confirm_poll"`

	MessagingEnv  string `mapstructure:"messaging_env"`
	ChatPeer      string `mapstructure:"chat_peer"`
	FaucetBaseURL string `mapstructure:"faucet_base_url"`
}

var ChilizSpicyTestnet = ChainConfig{
	ChainNamespace:   "eip155",
	ChainID:          "0x15b32",
	RPCTarget:        "https://spicy-rpc.chiliz.com/",
	DisplayName:      "Chiliz Spicy Testnet",
	BlockExplorerURL: "https://testnet.chiliscan.com/",
	Ticker:           "CHZ",
	TickerName:       "Chiliz",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiry", 24*time.Hour)

	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("redis_pass", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("client_id", "")
	v.SetDefault("identity_network", "sapphire_devnet")
	v.SetDefault("login_adapter", "devkey")
	v.SetDefault("login_provider", "google")
	v.SetDefault("dev_private_key", "")
	v.SetDefault("keystore_path", "")
	v.SetDefault("keystore_passphrase", "")
	v.SetDefault("auto_connect", false)

	v.SetDefault("chain.chain_namespace", ChilizSpicyTestnet.ChainNamespace)
	v.SetDefault("chain.chain_id", ChilizSpicyTestnet.ChainID)
	v.SetDefault("chain.rpc_target", ChilizSpicyTestnet.RPCTarget)
	v.SetDefault("chain.display_name", ChilizSpicyTestnet.DisplayName)
	v.SetDefault("chain.block_explorer_url", ChilizSpicyTestnet.BlockExplorerURL)
	v.SetDefault("chain.ticker", ChilizSpicyTestnet.Ticker)
	v.SetDefault("chain.ticker_name", ChilizSpicyTestnet.TickerName)

	v.SetDefault("read_rpc_url", "https://spicy-rpc.chiliz.com/")
	v.SetDefault("game_factory_address", "0x85E433c027F2438375ce9eBA1C42A8CFFDC2CA5c")
	v.SetDefault("order_book_address", "0x1447eA3E2564A0cD360D0A8877Df5250FA31889A")
	v.SetDefault("discovery_from_block", 17401495)
	v.SetDefault("confirm_poll", 2*time.Second)

	v.SetDefault("messaging_env", "dev")
	v.SetDefault("chat_peer", "0x3F11b27F323b62B159D2642964fa27C46C841897")
	v.SetDefault("faucet_base_url", "https://chiliz-faucet.vercel.app")
}

// Load reads configuration from BETINHO_* environment variables, falling
// back to the Chiliz Spicy testnet defaults. Nested keys use an underscore,
// e.g. BETINHO_CHAIN_RPC_TARGET.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("betinho")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ListenAddr is the host:port the HTTP server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required in production")
	}
	if c.Chain.RPCTarget == "" {
		return fmt.Errorf("chain rpc_target is required")
	}
	if c.ConfirmPoll <= 0 {
		return fmt.Errorf("confirm_poll must be positive, got %s", c.ConfirmPoll)
	}
	switch c.LoginAdapter {
	case "devkey", "keystore":
	default:
		return fmt.Errorf("unknown login adapter: %s", c.LoginAdapter)
	}
	return nil
}
