package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"prizepool/crypto"
	"prizepool/native/lottery"
)

// VenueConfig selects the yield venue backing the pool. With an empty
// endpoint the service runs the built-in simulator, which accrues yield at
// SimulatedAPRBps on the deposited principal.
type VenueConfig struct {
	Endpoint        string `toml:"Endpoint"`
	SimulatedAPRBps uint64 `toml:"SimulatedAPRBps"`
}

// RandomnessConfig selects the randomness coordinator. With an empty endpoint
// the service runs the built-in simulator, which fulfills requests after
// SimulatedDelayBlocks. The oracle tuning fields are forwarded verbatim on
// every request.
type RandomnessConfig struct {
	Endpoint             string `toml:"Endpoint"`
	SubscriptionID       uint64 `toml:"SubscriptionID"`
	KeyHash              string `toml:"KeyHash"`
	Confirmations        uint16 `toml:"Confirmations"`
	CallbackGasLimit     uint32 `toml:"CallbackGasLimit"`
	NumWords             uint32 `toml:"NumWords"`
	SimulatedDelayBlocks uint64 `toml:"SimulatedDelayBlocks"`
}

// WebhookConfig enables signed draw lifecycle notifications when an
// endpoint is set.
type WebhookConfig struct {
	Endpoint string `toml:"Endpoint"`
	Secret   string `toml:"Secret"`
}

type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	DataDir        string `toml:"DataDir"`
	LogFile        string `toml:"LogFile"`
	AdminToken     string `toml:"AdminToken"`
	FeeReceiver    string `toml:"FeeReceiver"`
	FeeBps         uint64 `toml:"FeeBps"`
	MaxFeeBps      uint64 `toml:"MaxFeeBps"`
	PenaltyBps     uint64 `toml:"PenaltyBps"`
	MaxStake       string `toml:"MaxStake"`
	MinMaxStake    string `toml:"MinMaxStake"`
	EpochSeconds   uint64 `toml:"EpochSeconds"`
	EpochStartTime uint64 `toml:"EpochStartTime"`
	GraceBlocks    uint64 `toml:"GraceBlocks"`

	Venue      VenueConfig      `toml:"Venue"`
	Randomness RandomnessConfig `toml:"Randomness"`
	Webhook    WebhookConfig    `toml:"Webhook"`
}

// Load loads the configuration from the given path, creating a commented
// default file when none exists yet.
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
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = "127.0.0.1:8651"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./prizepool-data"
	}
	defaults := lottery.DefaultParams()
	if cfg.MaxFeeBps == 0 {
		cfg.MaxFeeBps = defaults.MaxFeeBps
	}
	if cfg.FeeBps == 0 {
		cfg.FeeBps = defaults.FeeBps
	}
	if cfg.PenaltyBps == 0 {
		cfg.PenaltyBps = defaults.PenaltyBps
	}
	if strings.TrimSpace(cfg.MaxStake) == "" {
		cfg.MaxStake = defaults.MaxStake.String()
	}
	if strings.TrimSpace(cfg.MinMaxStake) == "" {
		cfg.MinMaxStake = defaults.MinMaxStake.String()
	}
	if cfg.EpochSeconds == 0 {
		cfg.EpochSeconds = defaults.EpochSeconds
	}
	if cfg.GraceBlocks == 0 {
		cfg.GraceBlocks = defaults.GraceBlocks
	}
	if cfg.Venue.SimulatedAPRBps == 0 {
		cfg.Venue.SimulatedAPRBps = 500
	}
	if cfg.Randomness.NumWords == 0 {
		cfg.Randomness.NumWords = 1
	}
	if cfg.Randomness.Confirmations == 0 {
		cfg.Randomness.Confirmations = 3
	}
	if cfg.Randomness.CallbackGasLimit == 0 {
		cfg.Randomness.CallbackGasLimit = 200_000
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FeeReceiver) == "" {
		return fmt.Errorf("FeeReceiver must be set")
	}
	if _, err := crypto.DecodeAddress(c.FeeReceiver); err != nil {
		return fmt.Errorf("FeeReceiver: %w", err)
	}
	if _, ok := new(big.Int).SetString(c.MaxStake, 10); !ok {
		return fmt.Errorf("MaxStake is not a decimal integer: %q", c.MaxStake)
	}
	if _, ok := new(big.Int).SetString(c.MinMaxStake, 10); !ok {
		return fmt.Errorf("MinMaxStake is not a decimal integer: %q", c.MinMaxStake)
	}
	if strings.TrimSpace(c.Webhook.Endpoint) != "" && strings.TrimSpace(c.Webhook.Secret) == "" {
		return fmt.Errorf("Webhook.Secret must be set when Webhook.Endpoint is configured")
	}
	params, err := c.PoolParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

// PoolParams converts the configuration into lottery engine parameters.
func (c *Config) PoolParams() (lottery.Params, error) {
	params := lottery.Params{
		FeeBps:       c.FeeBps,
		MaxFeeBps:    c.MaxFeeBps,
		PenaltyBps:   c.PenaltyBps,
		EpochSeconds: c.EpochSeconds,
		GraceBlocks:  c.GraceBlocks,
	}
	maxStake, ok := new(big.Int).SetString(c.MaxStake, 10)
	if !ok {
		return params, fmt.Errorf("MaxStake is not a decimal integer: %q", c.MaxStake)
	}
	params.MaxStake = maxStake
	minMaxStake, ok := new(big.Int).SetString(c.MinMaxStake, 10)
	if !ok {
		return params, fmt.Errorf("MinMaxStake is not a decimal integer: %q", c.MinMaxStake)
	}
	params.MinMaxStake = minMaxStake
	receiver, err := crypto.DecodeAddress(c.FeeReceiver)
	if err != nil {
		return params, fmt.Errorf("FeeReceiver: %w", err)
	}
	copy(params.FeeReceiver[:], receiver.Bytes())
	return params, nil
}
