package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golden.hcl")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Listen != ":8080" {
		t.Errorf("listen = %q, want :8080", c.Server.Listen)
	}
	if c.Chain.Mode != "memory" {
		t.Errorf("chain mode = %q, want memory", c.Chain.Mode)
	}
	if c.Store.Path != "goldenflop.db" {
		t.Errorf("store path = %q", c.Store.Path)
	}
	if len(c.Tables) != 1 || c.Tables[0].RoomID() != "table-main" {
		t.Fatalf("default tables = %+v", c.Tables)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  listen          = ":9090"
  allowed_origins = ["https://play.example"]
  admin_token     = "dev-admin"
  token_secret    = "hunter2"
}

chain {
  mode       = "rpc"
  rpc_url    = "http://127.0.0.1:18899"
  fee_buffer = 10000
}

vault {
  key_dir           = "./keys"
  rake_address      = "addr-rake"
  min_rake_transfer = 2000000
}

store {
  path = "flop.db"
}

rake {
  percent = 5
}

timing {
  turn_seconds      = 20
  countdown_seconds = 5
  grace_seconds     = 90
}

table "low-1" {
  name        = "Low Stakes #1"
  small_blind = 10
  big_blind   = 20
  min_buy_in  = 400
  max_buy_in  = 2000
  vault       = true
}

table "high-1" {
  small_blind = 50
  big_blind   = 100
  premium     = true
}
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if c.Server.Listen != ":9090" || c.Server.AdminToken != "dev-admin" {
		t.Errorf("server = %+v", c.Server)
	}
	if c.Server.TokenTTL() != 24*time.Hour {
		t.Errorf("token ttl = %v, want default 24h", c.Server.TokenTTL())
	}
	if c.Chain.Mode != "rpc" || c.Chain.FeeBuffer != 10000 {
		t.Errorf("chain = %+v", c.Chain)
	}
	if c.Vault.TreasuryKeyPath() != filepath.Join("./keys", "treasury.json") {
		t.Errorf("treasury key path = %q", c.Vault.TreasuryKeyPath())
	}
	if c.Store.Path != "flop.db" {
		t.Errorf("store path = %q", c.Store.Path)
	}

	timing := c.Timing.RoomTiming()
	if timing.Turn != 20*time.Second || timing.CountdownTick != 5 {
		t.Errorf("room timing = %+v", timing)
	}
	if timing.Reservation != 0 {
		t.Errorf("reservation override = %v, want 0 (room default)", timing.Reservation)
	}
	if c.Timing.Grace() != 90*time.Second {
		t.Errorf("grace = %v", c.Timing.Grace())
	}

	if len(c.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(c.Tables))
	}
	low := c.Tables[0]
	if low.RoomID() != "table-low-1" || low.Name != "Low Stakes #1" || !low.Vault {
		t.Errorf("low table = %+v", low)
	}
	if low.MaxPlayers != 6 {
		t.Errorf("low max players = %d, want default 6", low.MaxPlayers)
	}

	high := c.Tables[1]
	if high.Name != "high-1" {
		t.Errorf("high name = %q, want the label", high.Name)
	}
	if high.MinBuyIn != 5_000 || high.MaxBuyIn != 50_000 {
		t.Errorf("high buy-in defaults = %d..%d, want 50bb..500bb", high.MinBuyIn, high.MaxBuyIn)
	}
	eng := high.EngineConfig()
	if eng.BigBlind != 100 || !eng.Premium {
		t.Errorf("engine config = %+v", eng)
	}
}

func TestLoadRejectsBadHCL(t *testing.T) {
	path := writeConfig(t, `server { listen = `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "inverted blinds",
			body: `
table "bad" {
  small_blind = 20
  big_blind   = 10
}`,
			want: "table \"bad\"",
		},
		{
			name: "duplicate table",
			body: `
table "twin" {
  small_blind = 10
  big_blind   = 20
}
table "twin" {
  small_blind = 10
  big_blind   = 20
}`,
			want: "defined twice",
		},
		{
			name: "unknown chain mode",
			body: `
chain {
  mode = "carrier-pigeon"
}`,
			want: "chain mode",
		},
		{
			name: "rpc without url",
			body: `
chain {
  mode = "rpc"
}`,
			want: "rpc_url",
		},
		{
			name: "rake percent",
			body: `
rake {
  percent = 150
}`,
			want: "rake percent",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, tc.body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			err = c.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want substring %q", err, tc.want)
			}
		})
	}
}
