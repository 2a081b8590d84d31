package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/easwar16/Golden-Flop-sub000/internal/config"
)

// TablesCmd prints the tables a config file defines, after defaults and
// validation, so a deployment can be checked without starting the server.
type TablesCmd struct {
	Config string `kong:"short='c',default='golden.hcl',help='Path to HCL configuration file'"`
}

func (c *TablesCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROOM\tNAME\tSTAKES\tBUY-IN\tSEATS\tFLAGS")
	for _, t := range cfg.Tables {
		e := t.EngineConfig()
		var flags []string
		if t.Vault {
			flags = append(flags, "vault")
		}
		if t.Premium {
			flags = append(flags, "premium")
		}
		if t.Token != "" {
			flags = append(flags, t.Token)
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d-%d\t%d\t%s\n",
			t.RoomID(), t.Name, e.SmallBlind, e.BigBlind,
			e.MinBuyIn, e.MaxBuyIn, e.MaxPlayers, strings.Join(flags, ","))
	}
	return w.Flush()
}
