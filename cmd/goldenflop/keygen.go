package main

import (
	"fmt"
	"os"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/config"
)

// KeygenCmd creates a vault keypair if one does not exist and prints its
// address. Run it ahead of deployment to learn deposit addresses without
// starting the server.
type KeygenCmd struct {
	KeyDir string `kong:"default='vault-keys',help='Directory holding vault keyfiles'"`
	Room   string `kong:"help='Room id to key, e.g. table-high-1 (omit for the treasury key)'"`
}

func (c *KeygenCmd) Run() error {
	vb := &config.VaultBlock{KeyDir: c.KeyDir}
	path := vb.TreasuryKeyPath()
	if c.Room != "" {
		path = vb.RoomKeyPath(c.Room)
	}
	if err := os.MkdirAll(c.KeyDir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	keys, err := chain.LoadOrCreateKeypair(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", keys.Address(), path)
	return nil
}
