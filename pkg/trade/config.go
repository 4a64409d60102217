package trade

import (
	"net/http"
	"time"

	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/ybbus/jsonrpc"

	"github.com/DecentraGuild/escrow-go/pkg/solana"
)

// Config is the environment driven configuration for the trade engine.
type Config struct {
	RPCEndpoint          string        `mapstructure:"rpc_endpoint"`
	ProgramID            string        `mapstructure:"program_id"`
	FeeCollector         string        `mapstructure:"fee_collector"`
	DefaultPartialFill   bool          `mapstructure:"default_partial_fill"`
	SlippageMilliPercent uint64        `mapstructure:"slippage_milli_percent"`
	MinExpiration        time.Duration `mapstructure:"min_expiration"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	Commitment           string        `mapstructure:"commitment"`
}

var defaultConfig = Config{
	RPCEndpoint:          string(solana.EnvironmentDev),
	DefaultPartialFill:   false,
	SlippageMilliPercent: 1,
	MinExpiration:        5 * time.Minute,
	FetchTimeout:         30 * time.Second,
	Commitment:           "confirmed",
}

func init() {
	_ = viper.BindEnv("rpc_endpoint", "SOLANA_RPC_ENDPOINT")
	_ = viper.BindEnv("program_id", "ESCROW_PROGRAM_ID")
	_ = viper.BindEnv("fee_collector", "ESCROW_FEE_COLLECTOR")
	_ = viper.BindEnv("default_partial_fill", "ESCROW_DEFAULT_PARTIAL_FILL")
	_ = viper.BindEnv("slippage_milli_percent", "ESCROW_SLIPPAGE_MILLI_PERCENT")
	_ = viper.BindEnv("min_expiration", "ESCROW_MIN_EXPIRATION")
	_ = viper.BindEnv("fetch_timeout", "ESCROW_FETCH_TIMEOUT")
	_ = viper.BindEnv("commitment", "ESCROW_COMMITMENT")
}

// LoadConfig loads the configuration from the environment, applying
// defaults for any value that isn't set.
func LoadConfig() (*Config, error) {
	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	return &config, nil
}

// NewSolanaClient builds an RPC client for the configured endpoint. The
// fetch timeout bounds every RPC round trip.
func (c *Config) NewSolanaClient() solana.Client {
	return solana.NewWithRPCOptions(c.RPCEndpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{
			Timeout: c.FetchTimeout,
		},
	})
}

// ProgramKey returns the configured escrow program id.
func (c *Config) ProgramKey() (ed25519.PublicKey, error) {
	return parseKey(c.ProgramID, "program_id")
}

// FeeCollectorKey returns the configured fee collector wallet.
func (c *Config) FeeCollectorKey() (ed25519.PublicKey, error) {
	return parseKey(c.FeeCollector, "fee_collector")
}

// CommitmentLevel maps the configured commitment string to a solana
// commitment, defaulting to confirmed for unrecognized values.
func (c *Config) CommitmentLevel() solana.Commitment {
	switch c.Commitment {
	case "processed":
		return solana.CommitmentProcessed
	case "finalized":
		return solana.CommitmentFinalized
	default:
		return solana.CommitmentConfirmed
	}
}

func parseKey(value, name string) (ed25519.PublicKey, error) {
	if value == "" {
		return nil, errors.Errorf("%s not configured", name)
	}

	raw, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", name)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid %s length: %d", name, len(raw))
	}

	return raw, nil
}
