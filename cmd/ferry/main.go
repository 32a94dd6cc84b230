package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/block/ferry/pkg/buildinfo"
	"github.com/block/ferry/pkg/export"
	"github.com/block/ferry/pkg/verify"
)

// Populated at release time via -ldflags, see pkg/buildinfo.
var (
	version string
	commit  string
	date    string
)

var cli struct {
	Export  export.Export `cmd:"" help:"Export an Oracle schema's data as MySQL load scripts."`
	Verify  verify.Verify `cmd:"" help:"Run a generated check script against an imported target database."`
	Version versionCmd    `cmd:"" help:"Print version information."`
}

type versionCmd struct{}

func (versionCmd) Run() error {
	fmt.Printf("ferry %s\n", buildinfo.Get())
	return nil
}

func main() {
	buildinfo.Set(version, commit, date)
	ctx := kong.Parse(&cli,
		kong.Name("ferry"),
		kong.Description("Ferry: Oracle to MySQL data export"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
