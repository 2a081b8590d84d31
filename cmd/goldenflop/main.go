package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the poker service"`
	Keygen  KeygenCmd        `cmd:"" help:"Create or print a vault keypair"`
	Tables  TablesCmd        `cmd:"" help:"List the tables a config file defines"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("goldenflop"),
		kong.Description("Multi-table no-limit hold'em server with on-chain buy-ins"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
