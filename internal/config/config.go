// Package config loads the server's HCL configuration file: listener and
// surface settings, the chain backend, vault keys and payout tuning, the
// store path, rake policy, timing overrides, and the predefined tables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/room"
)

// Config is the complete server configuration.
type Config struct {
	Server *ServerBlock `hcl:"server,block"`
	Chain  *ChainBlock  `hcl:"chain,block"`
	Vault  *VaultBlock  `hcl:"vault,block"`
	Store  *StoreBlock  `hcl:"store,block"`
	Rake   *RakeBlock   `hcl:"rake,block"`
	Timing *TimingBlock `hcl:"timing,block"`
	Tables []TableBlock `hcl:"table,block"`
}

// ServerBlock contains listener and HTTP surface settings.
type ServerBlock struct {
	Listen         string   `hcl:"listen,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
	AdminToken     string   `hcl:"admin_token,optional"`

	// TokenSecret signs login tokens. Empty means a fresh secret every
	// start, which invalidates outstanding tokens across restarts.
	TokenSecret   string `hcl:"token_secret,optional"`
	TokenTTLHours int    `hcl:"token_ttl_hours,optional"`

	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`

	// HistoryDir enables PHH hand-history archival for configured tables,
	// one .phhs file per table. Empty disables it.
	HistoryDir string `hcl:"history_dir,optional"`
}

// TokenTTL is the bearer token lifetime.
func (s *ServerBlock) TokenTTL() time.Duration {
	return time.Duration(s.TokenTTLHours) * time.Hour
}

// ChainBlock selects the chain backend.
type ChainBlock struct {
	Mode      string `hcl:"mode,optional"` // "memory" or "rpc"
	RPCURL    string `hcl:"rpc_url,optional"`
	FeeBuffer int64  `hcl:"fee_buffer,optional"`
}

// VaultBlock locates signing keys and tunes the payout engine.
type VaultBlock struct {
	KeyDir              string `hcl:"key_dir,optional"`
	RakeAddress         string `hcl:"rake_address,optional"`
	SweepAddress        string `hcl:"sweep_address,optional"`
	MinRakeTransfer     int64  `hcl:"min_rake_transfer,optional"`
	RakeIntervalSeconds int    `hcl:"rake_interval_seconds,optional"`
	MaxAttempts         int    `hcl:"max_attempts,optional"`
	RetryBaseMS         int    `hcl:"retry_base_ms,optional"`
}

// TreasuryKeyPath is where the treasury keypair lives.
func (v *VaultBlock) TreasuryKeyPath() string {
	return filepath.Join(v.KeyDir, "treasury.json")
}

// RoomKeyPath is where a room's vault keypair lives.
func (v *VaultBlock) RoomKeyPath(roomID string) string {
	return filepath.Join(v.KeyDir, roomID+".json")
}

// RetryBase is the payout retry backoff base.
func (v *VaultBlock) RetryBase() time.Duration {
	return time.Duration(v.RetryBaseMS) * time.Millisecond
}

// RakeInterval is how often accrued rake is considered for transfer.
func (v *VaultBlock) RakeInterval() time.Duration {
	return time.Duration(v.RakeIntervalSeconds) * time.Second
}

// StoreBlock locates the sqlite database.
type StoreBlock struct {
	Path string `hcl:"path,optional"`
}

// RakeBlock is the house cut applied to predefined tables.
type RakeBlock struct {
	Percent int   `hcl:"percent,optional"`
	Cap     int64 `hcl:"cap,optional"` // 0 = no cap
}

// TimingBlock overrides the room scheduling constants. Zero fields keep the
// reference defaults.
type TimingBlock struct {
	TurnSeconds        int `hcl:"turn_seconds,optional"`
	CountdownSeconds   int `hcl:"countdown_seconds,optional"`
	ReservationSeconds int `hcl:"reservation_seconds,optional"`
	GraceSeconds       int `hcl:"grace_seconds,optional"`
	NextHandSeconds    int `hcl:"next_hand_seconds,optional"`
}

// RoomTiming converts the block, leaving zero fields to the room defaults.
func (t *TimingBlock) RoomTiming() room.Timing {
	return room.Timing{
		Turn:          time.Duration(t.TurnSeconds) * time.Second,
		CountdownTick: t.CountdownSeconds,
		Reservation:   time.Duration(t.ReservationSeconds) * time.Second,
		NextHand:      time.Duration(t.NextHandSeconds) * time.Second,
	}
}

// Grace is the disconnect window. Zero means the registry default.
func (t *TimingBlock) Grace() time.Duration {
	return time.Duration(t.GraceSeconds) * time.Second
}

// TableBlock is one predefined persistent table. The block label becomes
// the room id, prefixed "table-", so `table "low-1"` is room "table-low-1".
type TableBlock struct {
	Label      string `hcl:"id,label"`
	Name       string `hcl:"name,optional"`
	SmallBlind int64  `hcl:"small_blind"`
	BigBlind   int64  `hcl:"big_blind"`
	MinBuyIn   int64  `hcl:"min_buy_in,optional"`
	MaxBuyIn   int64  `hcl:"max_buy_in,optional"`
	MaxPlayers int    `hcl:"max_players,optional"`
	Vault      bool   `hcl:"vault,optional"`
	Premium    bool   `hcl:"premium,optional"`
	Token      string `hcl:"token,optional"`
}

// RoomID is the stable room id for this table.
func (t TableBlock) RoomID() string {
	return "table-" + t.Label
}

// EngineConfig converts the block for the hand engine.
func (t TableBlock) EngineConfig() engine.Config {
	return engine.Config{
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		MinBuyIn:   t.MinBuyIn,
		MaxBuyIn:   t.MaxBuyIn,
		MaxPlayers: t.MaxPlayers,
		Token:      t.Token,
		Premium:    t.Premium,
	}
}

// Default returns the configuration used when no file exists: one off-chain
// table, memory chain, local store.
func Default() *Config {
	c := &Config{
		Tables: []TableBlock{{
			Label:      "main",
			Name:       "Main Table",
			SmallBlind: 10,
			BigBlind:   20,
			MaxPlayers: 6,
		}},
	}
	c.applyDefaults()
	return c
}

// Load reads path. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	var c Config
	if diags := gohcl.DecodeBody(file.Body, nil, &c); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerBlock{}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.TokenTTLHours <= 0 {
		c.Server.TokenTTLHours = 24
	}
	if c.Chain == nil {
		c.Chain = &ChainBlock{}
	}
	if c.Chain.Mode == "" {
		c.Chain.Mode = "memory"
	}
	if c.Vault == nil {
		c.Vault = &VaultBlock{}
	}
	if c.Vault.KeyDir == "" {
		c.Vault.KeyDir = "vault-keys"
	}
	if c.Vault.RakeIntervalSeconds <= 0 {
		c.Vault.RakeIntervalSeconds = 60
	}
	if c.Store == nil {
		c.Store = &StoreBlock{}
	}
	if c.Store.Path == "" {
		c.Store.Path = "goldenflop.db"
	}
	if c.Rake == nil {
		c.Rake = &RakeBlock{}
	}
	if c.Timing == nil {
		c.Timing = &TimingBlock{}
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Name == "" {
			t.Name = t.Label
		}
		if t.MaxPlayers == 0 {
			t.MaxPlayers = 6
		}
		if t.MinBuyIn == 0 {
			t.MinBuyIn = t.BigBlind * 50
		}
		if t.MaxBuyIn == 0 {
			t.MaxBuyIn = t.BigBlind * 500
		}
	}
}

// Validate rejects configurations the server cannot run.
func (c *Config) Validate() error {
	switch c.Chain.Mode {
	case "memory":
	case "rpc":
		if c.Chain.RPCURL == "" {
			return fmt.Errorf("chain mode rpc requires rpc_url")
		}
	default:
		return fmt.Errorf("unknown chain mode %q", c.Chain.Mode)
	}

	if c.Rake.Percent < 0 || c.Rake.Percent > 100 {
		return fmt.Errorf("rake percent %d outside 0..100", c.Rake.Percent)
	}
	if c.Rake.Cap < 0 {
		return fmt.Errorf("rake cap %d is negative", c.Rake.Cap)
	}

	ts := c.Timing
	if ts.TurnSeconds < 0 || ts.CountdownSeconds < 0 || ts.ReservationSeconds < 0 ||
		ts.GraceSeconds < 0 || ts.NextHandSeconds < 0 {
		return fmt.Errorf("timing values must not be negative")
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if seen[t.Label] {
			return fmt.Errorf("table %q defined twice", t.Label)
		}
		seen[t.Label] = true
		if err := t.EngineConfig().Validate(); err != nil {
			return fmt.Errorf("table %q: %w", t.Label, err)
		}
	}
	return nil
}
