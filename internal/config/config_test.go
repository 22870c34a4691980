package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func load(t *testing.T, flags GlobalFlags) Settings {
	t.Helper()
	settings, err := Load(flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return settings
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	for _, key := range []string{
		"RPC_URL", "CHAIN_ID", "CHAIN_EXPLORER_URL", "SOLANA_RPC_URL",
		"AGGREGATOR_API_URL", "REDIS_URL", "SWAP_BACKEND", "SCOUT_DB_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	isolate(t)
	settings := load(t, GlobalFlags{})

	if settings.SwapBackend != SwapBackendAMM {
		t.Fatalf("unexpected default backend: %s", settings.SwapBackend)
	}
	if settings.EVMChainID != 146 {
		t.Fatalf("unexpected default chain id: %d", settings.EVMChainID)
	}
	if settings.SwapFeeBps != 200 || settings.SlippageBps != 50 {
		t.Fatalf("unexpected swap defaults: %+v", settings)
	}
	if settings.QuoteTTL != 10*time.Minute {
		t.Fatalf("unexpected quote ttl: %s", settings.QuoteTTL)
	}
	if len(settings.Pools) != 2 {
		t.Fatalf("expected two default pools, got %d", len(settings.Pools))
	}
}

func TestFileConfigOverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
evm:
  rpc_url: https://rpc.example
  chain_id: 10
solana:
  rpc_url: https://sol.example
swap:
  backend: aggregator
  fee_bps: 30
  quote_ttl: 5m
  pools:
    - address: 58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2
      token_a_mint: So11111111111111111111111111111111111111112
      token_b_mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
retries: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings := load(t, GlobalFlags{ConfigPath: path})
	if settings.EVMRPCURL != "https://rpc.example" || settings.EVMChainID != 10 {
		t.Fatalf("file evm settings not applied: %+v", settings)
	}
	if settings.SwapBackend != SwapBackendAggregator {
		t.Fatalf("file backend not applied: %s", settings.SwapBackend)
	}
	if settings.SwapFeeBps != 30 || settings.QuoteTTL != 5*time.Minute {
		t.Fatalf("file swap settings not applied: %+v", settings)
	}
	if len(settings.Pools) != 1 {
		t.Fatalf("file pools not applied: %+v", settings.Pools)
	}
	if settings.Retries != 5 {
		t.Fatalf("file retries not applied: %d", settings.Retries)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("evm:\n  rpc_url: https://file.example\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RPC_URL", "https://env.example")
	t.Setenv("SWAP_BACKEND", "aggregator")

	settings := load(t, GlobalFlags{ConfigPath: path})
	if settings.EVMRPCURL != "https://env.example" {
		t.Fatalf("env did not override file: %s", settings.EVMRPCURL)
	}
	if settings.SwapBackend != SwapBackendAggregator {
		t.Fatalf("env backend not applied: %s", settings.SwapBackend)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("RPC_URL", "https://env.example")

	settings := load(t, GlobalFlags{EVMRPCURL: "https://flag.example", Timeout: "45s"})
	if settings.EVMRPCURL != "https://flag.example" {
		t.Fatalf("flag did not override env: %s", settings.EVMRPCURL)
	}
	if settings.Timeout != 45*time.Second {
		t.Fatalf("flag timeout not applied: %s", settings.Timeout)
	}
}

func TestRejectsUnknownBackend(t *testing.T) {
	isolate(t)
	if _, err := Load(GlobalFlags{SwapBackend: "orderbook"}); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}
