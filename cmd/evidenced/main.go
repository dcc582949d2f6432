package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/app"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/async"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/ingest"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/repository"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/server"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/services/evidence"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/synth"
)

func main() {
	manifestPath := flag.String("manifest", "", "YAML manifest of evidence jobs (required)")
	initial := flag.Bool("initial", true, "run every job once at startup")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *manifestPath == "" {
		logger.Error("usage", "cmd", "evidenced -manifest jobs.yaml [-initial=false]")
		os.Exit(2)
	}
	manifest, err := evidence.LoadManifest(*manifestPath)
	if err != nil {
		logger.Error("load manifest", "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.InitDatabase(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Cleanup()

	comps, err := app.NewComponents(ctx, cfg, db.Operational, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	svc := evidence.NewService(
		ingest.NewFSIngestor(cfg.Remote.MaxDownloadBytes, logger),
		db.Evidence,
		synth.OrganizationFrom(cfg.Organization),
		logger,
	)
	runner := evidence.NewRunner(ctx, svc, comps.Processor, manifest, func(rep evidence.Report) {
		logger.Info("evidenced.run.done",
			"objective", rep.ObjectiveCode,
			"ok", rep.Succeeded(),
			"title", rep.Title,
			"documents", rep.Extracted,
			"failures", len(rep.Failures),
			"unknown_names", rep.UnknownNames,
		)
	}, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
	)

	// gRPC server: health follows the store, reflection for grpcurl
	hs := health.NewServer()
	monitor := server.NewHealthMonitor(hs, db.DB, cfg.Server.HealthInterval, cfg.Server.HealthTimeout, logger)
	go monitor.Run(ctx)
	grpcServer := server.NewGRPCServer(hs)

	lis, err := net.Listen("tcp", ":"+cfg.Server.Port)
	if err != nil {
		logger.Error("listen", "port", cfg.Server.Port, "error", err)
		os.Exit(1)
	}
	logger.Info("gRPC serving", "port", cfg.Server.Port)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
			stop()
		}
	}()

	if *initial {
		for _, j := range manifest.Jobs {
			runner.Run(j)
		}
	}
	if len(runner.UploadDirs()) > 0 {
		if err := runner.Watch(ctx, 500*time.Millisecond); err != nil {
			logger.Error("watch failed", "error", err)
		}
	} else {
		logger.Warn("no upload_dir in manifest; nothing to watch")
	}
	<-ctx.Done()

	logger.Info("shutting down...")
	grpcServer.GracefulStop()
	runner.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("queue did not drain", "error", err)
	}
	fmt.Println("stopped.")
}
