// Command cac is the reproducible CLI surface over the commitment
// adjudication core: submit, query, verify-fabric, checkpoint, and
// verify-continuity (spec §6). It is a thin driver over the cac package —
// all adjudication, policy, and ledger logic lives there.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/resonance-systems/cac"
	"github.com/resonance-systems/cac/internal/adapters"
	"github.com/resonance-systems/cac/internal/continuity"
	"github.com/resonance-systems/cac/internal/fabric"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(os.Getenv("CAC_LOG_LEVEL"))}))
	slog.SetDefault(logger)

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cac <submit|query|verify-fabric|checkpoint|verify-continuity> [flags]")
		return 20
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := cac.New(cac.WithLogger(logger), cac.WithVersion(version))
	if err != nil {
		logger.Error("starting core", "error", err)
		return 1
	}
	defer func() { _ = app.Shutdown(context.Background()) }()

	switch args[0] {
	case "submit":
		return cmdSubmit(ctx, app, args[1:])
	case "query":
		return cmdQuery(app, args[1:])
	case "verify-fabric":
		return cmdVerifyFabric(ctx, app, args[1:])
	case "checkpoint":
		return cmdCheckpoint(app, args[1:])
	case "verify-continuity":
		return cmdVerifyContinuity(app)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", args[0])
		return 20
	}
}

func cmdSubmit(ctx context.Context, app *cac.App, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: cac submit <declaration.json>")
		return 20
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "open declaration: %v\n", err)
		return 20
	}
	defer f.Close()

	decl, err := adapters.DecodeDeclaration(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode declaration: %v\n", err)
		return 20
	}

	result, err := app.Submit(ctx, decl)
	if encErr := adapters.EncodeAdjudicationResult(os.Stdout, result); encErr != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", encErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
	}
	return adapters.ExitCode(result, err)
}

func cmdQuery(app *cac.App, args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	worldline := fs.String("worldline", "", "restrict to entries declared by this worldline id")
	decision := fs.String("decision", "", "restrict to entries with this decision")
	if err := fs.Parse(args); err != nil {
		return 20
	}

	filter := ledger.Filter{
		DeclaringID: identity.WorldlineID(*worldline),
	}
	if *decision != "" {
		req := adapters.QueryRequest{DeclaringID: *worldline, Decision: *decision}
		parsed, err := adapters.ToLedgerFilter(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "query filter: %v\n", err)
			return 20
		}
		filter = parsed
	}

	entries := app.Query(filter)
	if err := adapters.EncodeQueryResult(os.Stdout, entries); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		return 1
	}
	return 0
}

func cmdVerifyFabric(ctx context.Context, app *cac.App, args []string) int {
	fs := flag.NewFlagSet("verify-fabric", flag.ContinueOnError)
	workers := fs.Int("workers", 0, "number of concurrent hash-check workers (0 = GOMAXPROCS); use 1 for the sequential walk")
	if err := fs.Parse(args); err != nil {
		return 20
	}

	var report fabric.FabricReport
	if *workers == 1 {
		report = app.VerifyFabric()
	} else {
		var err error
		report, err = app.VerifyFabricConcurrent(ctx, *workers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verify-fabric: %v\n", err)
			return 1
		}
	}

	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(report)
	if !report.OK() {
		return 10
	}
	return 0
}

func cmdCheckpoint(app *cac.App, args []string) int {
	fs := flag.NewFlagSet("checkpoint", flag.ContinueOnError)
	dir := fs.String("dir", app.Config().CheckpointDir, "directory to persist the checkpoint under")
	collectiveID := fs.String("collective-id", "", "governance collective id recorded in checkpoint metadata")
	if err := fs.Parse(args); err != nil {
		return 20
	}

	cp := app.Checkpoint(
		continuity.GovernanceMetadata{CollectiveID: *collectiveID, Labels: map[string]string{}},
		continuity.MembershipGraph{Edges: map[identity.WorldlineID][]identity.WorldlineID{}},
		continuity.RoleRegistry{Roles: map[identity.WorldlineID]string{}},
		continuity.TreasuryView{BalancesMinor: map[string]int64{}},
	)

	seqDir := continuity.CheckpointDirName(cp.Seq)
	if err := app.PersistCheckpoint(continuity.OSWriter{Root: *dir}, seqDir, cp); err != nil {
		fmt.Fprintf(os.Stderr, "persist checkpoint: %v\n", err)
		return adapters.ErrorExitCode(err)
	}

	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(cp)
	return 0
}

func cmdVerifyContinuity(app *cac.App) int {
	if err := app.VerifyContinuity(); err != nil {
		fmt.Fprintf(os.Stderr, "verify-continuity: %v\n", err)
		return adapters.ErrorExitCode(err)
	}
	fmt.Fprintln(os.Stdout, "continuity chain OK")
	return 0
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
