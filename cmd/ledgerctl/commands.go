package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"budgetapp/internal/app"
	"budgetapp/internal/config"
	"budgetapp/internal/database"
	"budgetapp/internal/ledgercsv"
	"budgetapp/internal/pipelineclient"
	"budgetapp/internal/services"
)

const dateLayout = "2006-01-02"

// Globals are flags shared by every command.
type Globals struct {
	Env     string        `help:"Runtime environment." env:"ENV" default:"development"`
	Timeout time.Duration `help:"Abort the command after this long." default:"10m"`
}

func (g *Globals) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.Timeout)
}

// openRuntime connects to the configured database. Commands run their work
// synchronously, so the job queue is always the in-process one.
func openRuntime(ctx context.Context) (*app.Runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.QueueBackend = app.QueueMemory

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		_ = dbManager.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	rt, err := app.NewRuntime(ctx, cfg, dbManager.DB())
	if err != nil {
		_ = dbManager.Close()
		return nil, nil, err
	}

	closeFn := func() {
		_ = rt.Close(context.Background())
		_ = dbManager.Close()
	}
	return rt, closeFn, nil
}

// SnapshotCmd records month-end summaries, locally or through a running server.
type SnapshotCmd struct {
	AsOf   string `help:"Reference date (YYYY-MM-DD). The month before it is recorded. Defaults to today." placeholder:"DATE"`
	User   string `help:"Record one user's period given by --year and --month instead of all users."`
	Year   int    `help:"Year of the single-user period."`
	Month  int    `help:"Month of the single-user period (1-12)."`
	Remote string `help:"Base URL of a running server. The job then runs there, authenticated with --api-key." env:"LEDGERCTL_REMOTE"`
	APIKey string `help:"Pipeline API key for --remote." env:"PIPELINE_API_KEY"`
}

func (cmd *SnapshotCmd) asOf(now time.Time) (time.Time, error) {
	if cmd.AsOf == "" {
		return now.UTC(), nil
	}
	t, err := time.Parse(dateLayout, cmd.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q, expected YYYY-MM-DD", cmd.AsOf)
	}
	return t, nil
}

func (cmd *SnapshotCmd) Run(kctx *kong.Context, g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()

	if cmd.User != "" && (cmd.Year == 0 || cmd.Month == 0) {
		return errors.New("--user requires --year and --month")
	}
	asOf, err := cmd.asOf(time.Now())
	if err != nil {
		return err
	}

	if cmd.Remote != "" {
		if cmd.APIKey == "" {
			return errors.New("--remote requires --api-key or PIPELINE_API_KEY")
		}
		req := pipelineclient.SummaryRequest{UserID: cmd.User, Year: cmd.Year, Month: cmd.Month}
		if cmd.User == "" {
			req.AsOf = &asOf
		}
		n, err := pipelineclient.New(cmd.Remote, cmd.APIKey, nil).RecordMonthlySummaries(ctx, req)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(kctx.Stdout, "Recorded %d summaries on %s\n", n, cmd.Remote)
		return nil
	}

	rt, closeFn, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if cmd.User != "" {
		summary, err := rt.Services.Summaries.RecordMonthlySummary(cmd.User, cmd.Year, cmd.Month)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(kctx.Stdout, "Recorded %04d-%02d for %s: income %d, expenses %d, balance %d\n",
			summary.Year, summary.Month, summary.UserID, summary.TotalIncome, summary.TotalExpenses, summary.Balance)
		return nil
	}

	n, err := rt.Services.Summaries.RecordPreviousMonthForAllUsers(ctx, asOf)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(kctx.Stdout, "Recorded %d summaries\n", n)
	return nil
}

// ImportCmd imports a CSV ledger for one user.
type ImportCmd struct {
	User string `help:"ID of the user who owns the imported transactions." required:""`
	File string `help:"CSV file to import." arg:"" type:"existingfile"`
}

func (cmd *ImportCmd) Run(kctx *kong.Context, g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()

	f, err := os.Open(cmd.File)
	if err != nil {
		return err
	}
	defer f.Close()

	rt, closeFn, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := rt.Services.Bulk.ImportTransactions(ctx, cmd.User, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(kctx.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("import finished with %d row errors", len(result.Errors))
	}
	return nil
}

// ExportCmd writes one user's transactions as CSV.
type ExportCmd struct {
	User   string `help:"ID of the user to export." required:""`
	Year   int    `help:"Only export this year."`
	Month  int    `help:"Only export this month (1-12)."`
	Output string `help:"Output file, '-' for stdout." short:"o" default:"-"`
}

func (cmd *ExportCmd) params() services.ExportParams {
	var p services.ExportParams
	if cmd.Year != 0 {
		p.Year = &cmd.Year
	}
	if cmd.Month != 0 {
		p.Month = &cmd.Month
	}
	return p
}

func (cmd *ExportCmd) Run(kctx *kong.Context, g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()

	rt, closeFn, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := rt.Services.Bulk.ExportTransactions(ctx, cmd.User, cmd.params())
	if err != nil {
		return err
	}

	var out io.Writer = kctx.Stdout
	if cmd.Output != "-" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := writeCSV(out, rows); err != nil {
		return err
	}
	if cmd.Output != "-" {
		_, _ = fmt.Fprintf(kctx.Stderr, "Wrote %d rows to %s\n", len(rows), cmd.Output)
	}
	return nil
}

func writeCSV(out io.Writer, rows []ledgercsv.ExportRow) error {
	w := ledgercsv.NewWriter(out)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return w.Flush()
}
