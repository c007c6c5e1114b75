package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dochost/cmd/dochost/commands"
	"git.home.luguber.info/inful/dochost/internal/version"
)

func main() {
	cli := commands.CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("dochost"),
		kong.Description("Versioned documentation hosting: archive import, page linking, latest-version resolution, search sync"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	err := ctx.Run(&commands.Global{})
	ctx.FatalIfErrorf(err)
}
