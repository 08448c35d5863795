// Command ledgerctl is the operator CLI: it records monthly summaries and
// imports or exports a user's ledger without going through the HTTP API.
package main

import (
	"github.com/alecthomas/kong"

	"budgetapp/internal/logger"
)

// CLI is the command tree.
type CLI struct {
	Globals

	Snapshot SnapshotCmd `cmd:"" help:"Record month-end summaries."`
	Import   ImportCmd   `cmd:"" help:"Import a CSV file into a user's ledger."`
	Export   ExportCmd   `cmd:"" help:"Export a user's ledger as CSV."`
}

var cli CLI

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ledgerctl"),
		kong.Description("Operator tool for the budgetapp ledger."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	logger.Init(cli.Env)
	defer logger.Sync()

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
