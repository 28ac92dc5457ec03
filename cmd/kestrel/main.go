package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/call"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/check"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/db"
	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/endpoints"
)

type CLI struct {
	app.Globals

	Version   VersionCmd    `cmd:"" help:"Print version information."`
	Endpoints endpoints.Cmd `cmd:"" help:"List registered endpoints and their parameters."`
	Call      call.Cmd      `cmd:"" help:"Call one endpoint and print the response."`
	Batch     call.BatchCmd `cmd:"" help:"Call every endpoint listed in a YAML file concurrently."`
	Check     check.Cmd     `cmd:"" help:"Report endpoint implementations that are not registered."`
	DB        db.Cmd        `cmd:"" name:"db" help:"Manage the raw data schema."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("kestrel"),
		kong.Description("Typed client for the Interactive Brokers Client Portal API."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
