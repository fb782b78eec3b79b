package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"neuropharm/internal/evidence"
	"neuropharm/internal/model"
	neuroapi "neuropharm/pkg/neuropharm"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:], out)
	case "simulate":
		return runSimulate(ctx, args[1:], out)
	case "batch":
		return runBatch(ctx, args[1:], out)
	case "receptors":
		return runReceptors(ctx, args[1:], out)
	case "evidence-import":
		return runEvidenceImport(ctx, args[1:], out)
	case "evidence":
		return runEvidence(ctx, args[1:], out)
	case "runs":
		return runRuns(ctx, args[1:], out)
	case "backends":
		return runBackends(ctx, args[1:], out)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type clientFlags struct {
	storeKind *string
	dbPath    *string
	runsDir   *string
	verbose   *bool
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind: fs.String("store", evidence.DefaultStoreKind(), "evidence store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", "neuropharm.db", "sqlite database path"),
		runsDir:   fs.String("runs-dir", "runs", "run artifact directory"),
		verbose:   fs.Bool("verbose", false, "structured logging to stderr"),
	}
}

func (f clientFlags) newClient() (*neuroapi.Client, error) {
	var logger *zap.Logger
	if *f.verbose {
		built, err := zap.NewProductionConfig().Build()
		if err != nil {
			return nil, fmt.Errorf("initialize logger: %w", err)
		}
		logger = built
	}
	return neuroapi.New(neuroapi.Options{
		StoreKind: *f.storeKind,
		DBPath:    *f.dbPath,
		RunsDir:   *f.runsDir,
		Logger:    logger,
	})
}

func runInit(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "initialized store=%s\n", *cf.storeKind)
	return nil
}

func runSimulate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	requestPath := fs.String("request", "", "path to a JSON simulation request")
	receptor := fs.String("receptor", "", "receptor id for a single-receptor request")
	occupancy := fs.Float64("occupancy", 0.5, "receptor occupancy in [0,1]")
	mechanism := fs.String("mechanism", "agonist", "mechanism: agonist|antagonist|partial|inverse")
	dosing := fs.String("dosing", "acute", "dosing regimen: acute|chronic")
	pvtWeight := fs.Float64("pvt-weight", 0, "salience blending weight in [0,1]")
	assumptions := fs.String("assumptions", "", "comma-separated assumption toggles to enable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req model.SimulationRequest
	switch {
	case *requestPath != "":
		loaded, err := loadSimulationRequest(*requestPath)
		if err != nil {
			return err
		}
		req = loaded
	case *receptor != "":
		built, err := buildSimulationRequest(*receptor, *occupancy, *mechanism, *dosing, *pvtWeight, *assumptions)
		if err != nil {
			return err
		}
		req = built
	default:
		return usageError("simulate requires -request or -receptor")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	result, err := client.Simulate(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func runBatch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	requestsPath := fs.String("requests", "", "path to a JSON array of simulation requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *requestsPath == "" {
		return usageError("batch requires -requests")
	}

	requests, err := loadSimulationRequests(*requestsPath)
	if err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	results, err := client.SimulateBatch(ctx, requests)
	if err != nil {
		return err
	}
	return writeJSON(out, results)
}

func runReceptors(_ context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("receptors", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for _, item := range client.Receptors() {
		fmt.Fprintf(out, "%-18s %s\n", item.ID, item.Description)
	}
	return nil
}

func runEvidenceImport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("evidence-import", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	path := fs.String("file", "", "YAML or JSON evidence file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return usageError("evidence-import requires -file")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.ImportEvidence(ctx, *path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported=%d skipped=%d\n", summary.Imported, summary.Skipped)
	for _, warning := range summary.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	return nil
}

func runEvidence(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("evidence", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	subject := fs.String("subject", "", "receptor id or alias")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return usageError("evidence requires -subject")
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	records, err := client.Evidence(ctx, *subject)
	if err != nil {
		return err
	}
	return writeJSON(out, records)
}

func runRuns(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	limit := fs.Int("limit", 20, "maximum rows to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, neuroapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	for _, item := range runs {
		fmt.Fprintf(out, "%s dosing=%s receptors=%d fallbacks=%d created=%s\n",
			item.RunID, item.Dosing, item.Receptors, item.Fallbacks, item.CreatedAtUTC)
	}
	return nil
}

func runBackends(_ context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	backends := client.Backends()
	for _, stage := range []string{"molecular", "pkpd", "circuit"} {
		fmt.Fprintf(out, "%s=%s\n", stage, backends[stage])
	}
	return nil
}

func writeJSON(out io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: neuropharmctl <init|simulate|batch|receptors|evidence-import|evidence|runs|backends> [flags]", msg)
}
