package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/app"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/async"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/enrich"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/export"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/ingest"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/repository"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/services/evidence"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/synth"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type options struct {
	manifest string
	inmem    bool
	xlsx     string
	failFast bool
	watch    bool
	only     string
}

func main() {
	var opts options
	flag.StringVar(&opts.manifest, "manifest", "", "YAML manifest of evidence jobs (required)")
	flag.BoolVar(&opts.inmem, "inmem", false, "use an in-memory SQLite store seeded from the roster")
	flag.StringVar(&opts.xlsx, "xlsx", "", "write the audit workbook to this path (optional)")
	flag.BoolVar(&opts.failFast, "fail-fast", false, "abandon a job on its first artifact failure")
	flag.BoolVar(&opts.watch, "watch", false, "keep running and rerun a job when its upload_dir changes")
	flag.StringVar(&opts.only, "jobs", "", "comma-separated objective codes to run (default: all)")
	flag.Parse()

	if opts.manifest == "" {
		printError("Error: --manifest is required\n")
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts, logger))
}

func run(ctx context.Context, opts options, logger *slog.Logger) int {
	manifest, err := evidence.LoadManifest(opts.manifest)
	if err != nil {
		printError("Error: %v\n", err)
		return 2
	}
	jobs, err := selectJobs(manifest, opts.only)
	if err != nil {
		printError("Error: %v\n", err)
		return 2
	}

	cfg := common.LoadConfig()
	if opts.inmem {
		cfg.Database.Driver = common.StoreDriverSQLite
		cfg.Database.SQLitePath = ":memory:"
	}
	if opts.failFast {
		cfg.Pipeline.FailFast = true
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 2
	}

	db, err := repository.InitDatabase(ctx, cfg, opts.inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return 1
	}
	defer db.Cleanup()

	if opts.inmem {
		if err := seedRoster(ctx, db, cfg.Enrichment.RosterFile); err != nil {
			logger.Error("failed to seed roster", "error", err)
			return 1
		}
	}

	comps, err := app.NewComponents(ctx, cfg, db.Operational, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}

	svc := evidence.NewService(
		ingest.NewFSIngestor(cfg.Remote.MaxDownloadBytes, logger),
		db.Evidence,
		synth.OrganizationFrom(cfg.Organization),
		logger,
	)

	var (
		mu      sync.Mutex
		reports []evidence.Report
	)
	report := func(rep evidence.Report) {
		mu.Lock()
		reports = append(reports, rep)
		mu.Unlock()
		printReport(rep)
	}
	runner := evidence.NewRunner(ctx, svc, comps.Processor, &evidence.Manifest{HospitalID: manifest.HospitalID, Jobs: jobs}, report, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
	)

	logger.Info("batch.start", "manifest", opts.manifest, "jobs", len(jobs), "workers", cfg.Pipeline.Workers)
	for _, j := range jobs {
		runner.Run(j)
	}
	runner.Wait()

	if opts.watch {
		fmt.Printf("Watching %d upload directories, Ctrl-C to stop\n", len(runner.UploadDirs()))
		if err := runner.Watch(ctx, 500*time.Millisecond); err != nil {
			logger.Error("watch failed", "error", err)
		}
		runner.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("queue did not drain", "error", err)
	}

	if opts.xlsx != "" {
		data, err := export.NewService(db.Evidence, logger).ExportAuditXLSX(context.WithoutCancel(ctx))
		if err != nil {
			logger.Error("failed to export workbook", "error", err)
			return 1
		}
		if err := os.WriteFile(opts.xlsx, data, 0644); err != nil {
			logger.Error("failed to write output file", "error", err)
			return 1
		}
	}

	mu.Lock()
	defer mu.Unlock()
	failed := 0
	for _, rep := range reports {
		if !rep.Succeeded() {
			failed++
		}
	}
	logger.Info("batch.complete", "runs", len(reports), "failed", failed, "output_file", opts.xlsx)

	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Runs: %d\n", len(reports))
	fmt.Printf("- Failed: %d\n", failed)
	if opts.xlsx != "" {
		fmt.Printf("- Output: %s\n", opts.xlsx)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func selectJobs(m *evidence.Manifest, only string) ([]evidence.JobSpec, error) {
	if strings.TrimSpace(only) == "" {
		return m.Jobs, nil
	}
	var out []evidence.JobSpec
	for _, code := range strings.Split(only, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		j, ok := m.Job(code)
		if !ok {
			return nil, fmt.Errorf("objective %q is not in the manifest", code)
		}
		out = append(out, j)
	}
	return out, nil
}

// seedRoster fills an empty operational store so enrichment draws from it.
func seedRoster(ctx context.Context, db *repository.Database, path string) error {
	roster, err := enrich.LoadRoster(path)
	if err != nil {
		return err
	}
	if err := db.Operational.SeedStaff(ctx, roster.Staff); err != nil {
		return err
	}
	return db.Operational.SeedConsultants(ctx, roster.Consultants)
}

func printReport(rep evidence.Report) {
	if rep.Succeeded() {
		fmt.Printf("[ok]   %s %q from %d document(s)\n", rep.ObjectiveCode, rep.Title, rep.Extracted)
	} else {
		fmt.Printf("[fail] %s: %v\n", rep.ObjectiveCode, rep.Err)
	}
	for _, f := range rep.Failures {
		fmt.Printf("       - %s [%s] %s\n", f.Name, f.Code, f.Message)
	}
	if len(rep.UnknownNames) > 0 {
		fmt.Printf("       unknown names: %s\n", strings.Join(rep.UnknownNames, ", "))
	}
}
