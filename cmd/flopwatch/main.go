package main

import (
	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Server  string           `short:"s" default:"ws://127.0.0.1:8080/ws" help:"Websocket URL of the poker server"`
	Table   string           `short:"t" help:"Table id to watch immediately, skipping the lobby"`
	Name    string           `default:"railbird" help:"Display name announced to the server"`
	Version kong.VersionFlag `short:"v" help:"Show version"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("flopwatch"),
		kong.Description("Terminal spectator for a running Golden Flop server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)

	p := tea.NewProgram(newModel(cli.Server, cli.Name, cli.Table), tea.WithAltScreen())
	final, err := p.Run()
	kctx.FatalIfErrorf(err)

	if m, ok := final.(*model); ok {
		if m.client != nil {
			m.client.Close()
		}
		kctx.FatalIfErrorf(m.err)
	}
}
