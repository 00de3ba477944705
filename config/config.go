package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"lendbridge/crypto"
)

// Config captures the node configuration loaded from config.toml.
type Config struct {
	ListenAddress string
	DataDir       string
	NetworkName   string

	Principals Principals
	Oracle     Oracle
	Bridge     Bridge
	Gateway    Gateway
	Monitor    Monitor
	Pauses     Pauses
}

// Principals names the privileged accounts, bech32-encoded.
type Principals struct {
	Owner  string
	Bridge string
	Oracle string
}

// Oracle configures the price feed engine.
type Oracle struct {
	// UpdateIntervalSeconds bounds both the update rate limit and the
	// staleness window. Zero keeps the engine default.
	UpdateIntervalSeconds uint64
}

// Bridge configures the matching engine's liquidation trigger.
type Bridge struct {
	// ThresholdSource is "position" or "global".
	ThresholdSource string
	// GlobalThreshold is the protocol-wide minimum collateral ratio in
	// percent, consulted only when ThresholdSource is "global".
	GlobalThreshold uint64
}

// Gateway configures the HTTP surface.
type Gateway struct {
	RequestsPerSecond float64
	Burst             int
}

// Monitor configures the ratio sweep daemon. The asset pair is the one
// assumed for borrower requests observed on the bridge.
type Monitor struct {
	CollateralAsset string
	BorrowedAsset   string
	SweepSeconds    uint64
}

// Pauses disables mutations per module while leaving reads available.
type Pauses struct {
	Oracle bool
	Pool   bool
	Bridge bool
}

const defaultConfigContent = `ListenAddress = "0.0.0.0:8081"
DataDir = "./lendbridge-data"
NetworkName = "lendbridge-local"

[Principals]
Owner = ""
Bridge = ""
Oracle = ""

[Oracle]
UpdateIntervalSeconds = 3600

[Bridge]
ThresholdSource = "position"
GlobalThreshold = 0

[Gateway]
RequestsPerSecond = 10.0
Burst = 20

[Monitor]
CollateralAsset = "ETH"
BorrowedAsset = "USD"
SweepSeconds = 60

[Pauses]
Oracle = false
Pool = false
Bridge = false
`

// Load reads the configuration at path, writing a default file first when
// none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if _, err := toml.Decode(defaultConfigContent, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = "0.0.0.0:8081"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./lendbridge-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "lendbridge-local"
	}
	if strings.TrimSpace(cfg.Bridge.ThresholdSource) == "" {
		cfg.Bridge.ThresholdSource = "position"
	}
	if cfg.Gateway.RequestsPerSecond <= 0 {
		cfg.Gateway.RequestsPerSecond = 10.0
	}
	if cfg.Gateway.Burst <= 0 {
		cfg.Gateway.Burst = 20
	}
	if strings.TrimSpace(cfg.Monitor.CollateralAsset) == "" {
		cfg.Monitor.CollateralAsset = "ETH"
	}
	if strings.TrimSpace(cfg.Monitor.BorrowedAsset) == "" {
		cfg.Monitor.BorrowedAsset = "USD"
	}
	if cfg.Monitor.SweepSeconds == 0 {
		cfg.Monitor.SweepSeconds = 60
	}
}

// Validate rejects configurations a node cannot safely start with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Bridge.ThresholdSource)) {
	case "position", "global":
	default:
		return fmt.Errorf("bridge: unknown ThresholdSource %q", c.Bridge.ThresholdSource)
	}
	if strings.ToLower(strings.TrimSpace(c.Bridge.ThresholdSource)) == "global" && c.Bridge.GlobalThreshold == 0 {
		return fmt.Errorf("bridge: global ThresholdSource requires a non-zero GlobalThreshold")
	}
	for name, value := range map[string]string{
		"Owner":  c.Principals.Owner,
		"Bridge": c.Principals.Bridge,
		"Oracle": c.Principals.Oracle,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(value); err != nil {
			return fmt.Errorf("principals: invalid %s address: %w", name, err)
		}
	}
	return nil
}

// PrincipalAddresses decodes the configured principals. Unset entries decode
// to the zero address, which disables the corresponding privileged surface.
func (c *Config) PrincipalAddresses() (owner, bridge, oracle crypto.Address, err error) {
	decode := func(value string) (crypto.Address, error) {
		if strings.TrimSpace(value) == "" {
			return crypto.Address{}, nil
		}
		return crypto.DecodeAddress(value)
	}
	if owner, err = decode(c.Principals.Owner); err != nil {
		return
	}
	if bridge, err = decode(c.Principals.Bridge); err != nil {
		return
	}
	oracle, err = decode(c.Principals.Oracle)
	return
}

// PauseMap projects the pause flags into the module pause table consumed by
// the engines.
func (c *Config) PauseMap() map[string]bool {
	return map[string]bool{
		"oracle": c.Pauses.Oracle,
		"pool":   c.Pauses.Pool,
		"bridge": c.Pauses.Bridge,
	}
}
