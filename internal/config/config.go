package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selection for the swap surface.
const (
	SwapBackendAggregator = "aggregator"
	SwapBackendAMM        = "amm"
)

type GlobalFlags struct {
	ConfigPath  string
	DBPath      string
	EVMRPCURL   string
	SolanaRPC   string
	SwapBackend string
	Timeout     string
	Retries     int
}

// PoolSeed is one entry of the fixed on-chain pool registry. Reserve and
// authority accounts are resolved from chain state at startup.
type PoolSeed struct {
	Address    string `yaml:"address"`
	TokenAMint string `yaml:"token_a_mint"`
	TokenBMint string `yaml:"token_b_mint"`
}

type Settings struct {
	DBPath     string
	DBLockPath string

	EVMRPCURL      string
	EVMChainID     int64
	EVMExplorerURL string

	SolanaRPCURL     string
	SolanaCommitment string

	AggregatorBaseURL string
	RedisURL          string

	SwapBackend string
	SwapFeeBps  int64
	SlippageBps int64
	QuoteTTL    time.Duration
	Pools       []PoolSeed

	Timeout        time.Duration
	Retries        int
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

type fileConfig struct {
	Database struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"database"`
	EVM struct {
		RPCURL      string `yaml:"rpc_url"`
		ChainID     *int64 `yaml:"chain_id"`
		ExplorerURL string `yaml:"explorer_url"`
	} `yaml:"evm"`
	Solana struct {
		RPCURL     string `yaml:"rpc_url"`
		Commitment string `yaml:"commitment"`
	} `yaml:"solana"`
	Aggregator struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"aggregator"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Swap struct {
		Backend     string     `yaml:"backend"`
		FeeBps      *int64     `yaml:"fee_bps"`
		SlippageBps *int64     `yaml:"slippage_bps"`
		QuoteTTL    string     `yaml:"quote_ttl"`
		Pools       []PoolSeed `yaml:"pools"`
	} `yaml:"swap"`
	Timeout        string `yaml:"timeout"`
	Retries        *int   `yaml:"retries"`
	ConfirmTimeout string `yaml:"confirm_timeout"`
	PollInterval   string `yaml:"poll_interval"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings := defaultSettings()

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}
	applyEnv(&settings)
	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.SwapBackend != SwapBackendAggregator && settings.SwapBackend != SwapBackendAMM {
		return Settings{}, fmt.Errorf("unsupported swap backend %q (expected %s|%s)", settings.SwapBackend, SwapBackendAggregator, SwapBackendAMM)
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.QuoteTTL <= 0 {
		settings.QuoteTTL = 10 * time.Minute
	}
	return settings, nil
}

func defaultSettings() Settings {
	return Settings{
		DBPath:           defaultStatePath("scout.db"),
		DBLockPath:       defaultStatePath("scout.lock"),
		EVMChainID:       146, // Sonic mainnet
		SolanaCommitment: "confirmed",
		SwapBackend:      SwapBackendAMM,
		SwapFeeBps:       200,
		SlippageBps:      50,
		QuoteTTL:         10 * time.Minute,
		Pools: []PoolSeed{
			{
				Address:    "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
				TokenAMint: "So11111111111111111111111111111111111111112",
				TokenBMint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			},
			{
				Address:    "9Md3QPJpwZkdqBBQSfczDZpZMSWxDQZRNdGG6XQJqbhK",
				TokenAMint: "So11111111111111111111111111111111111111112",
				TokenBMint: "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
			},
		},
		Timeout:        30 * time.Second,
		Retries:        2,
		ConfirmTimeout: 2 * time.Minute,
		PollInterval:   2 * time.Second,
	}
}

func resolveConfigPath(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return "", nil
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "scout", "config.yaml"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(buf, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&settings.DBPath, fc.Database.Path)
	setString(&settings.DBLockPath, fc.Database.LockPath)
	setString(&settings.EVMRPCURL, fc.EVM.RPCURL)
	if fc.EVM.ChainID != nil {
		settings.EVMChainID = *fc.EVM.ChainID
	}
	setString(&settings.EVMExplorerURL, fc.EVM.ExplorerURL)
	setString(&settings.SolanaRPCURL, fc.Solana.RPCURL)
	setString(&settings.SolanaCommitment, fc.Solana.Commitment)
	setString(&settings.AggregatorBaseURL, fc.Aggregator.BaseURL)
	setString(&settings.RedisURL, fc.Redis.URL)
	setString(&settings.SwapBackend, fc.Swap.Backend)
	if fc.Swap.FeeBps != nil {
		settings.SwapFeeBps = *fc.Swap.FeeBps
	}
	if fc.Swap.SlippageBps != nil {
		settings.SlippageBps = *fc.Swap.SlippageBps
	}
	if len(fc.Swap.Pools) > 0 {
		settings.Pools = fc.Swap.Pools
	}
	if err := setDuration(&settings.QuoteTTL, fc.Swap.QuoteTTL, "swap.quote_ttl"); err != nil {
		return err
	}
	if err := setDuration(&settings.Timeout, fc.Timeout, "timeout"); err != nil {
		return err
	}
	if fc.Retries != nil {
		settings.Retries = *fc.Retries
	}
	if err := setDuration(&settings.ConfirmTimeout, fc.ConfirmTimeout, "confirm_timeout"); err != nil {
		return err
	}
	if err := setDuration(&settings.PollInterval, fc.PollInterval, "poll_interval"); err != nil {
		return err
	}
	return nil
}

func applyEnv(settings *Settings) {
	setString(&settings.EVMRPCURL, os.Getenv("RPC_URL"))
	if v := strings.TrimSpace(os.Getenv("CHAIN_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.EVMChainID = id
		}
	}
	setString(&settings.EVMExplorerURL, os.Getenv("CHAIN_EXPLORER_URL"))
	setString(&settings.SolanaRPCURL, os.Getenv("SOLANA_RPC_URL"))
	setString(&settings.AggregatorBaseURL, os.Getenv("AGGREGATOR_API_URL"))
	setString(&settings.RedisURL, os.Getenv("REDIS_URL"))
	setString(&settings.SwapBackend, os.Getenv("SWAP_BACKEND"))
	setString(&settings.DBPath, os.Getenv("SCOUT_DB_PATH"))
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	setString(&settings.DBPath, flags.DBPath)
	setString(&settings.EVMRPCURL, flags.EVMRPCURL)
	setString(&settings.SolanaRPCURL, flags.SolanaRPC)
	setString(&settings.SwapBackend, flags.SwapBackend)
	if err := setDuration(&settings.Timeout, flags.Timeout, "--timeout"); err != nil {
		return err
	}
	if flags.Retries > 0 {
		settings.Retries = flags.Retries
	}
	return nil
}

func defaultStatePath(name string) string {
	base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return name
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "scout", name)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, v, label string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("parse %s: %w", label, err)
	}
	*dst = d
	return nil
}
