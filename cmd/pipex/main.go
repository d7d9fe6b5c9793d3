// Command pipex runs a pipeline definition: it loads configuration and
// the pipeline file, builds the plugin snapshot, and drives every
// process to completion, optionally exposing the status/control HTTP
// surface and the run ledger alongside it. Wiring follows the teacher's
// cmd/app/main.go shape: init logging, load config, build inter-service
// channels, start services as goroutines, wait on a cancellable context
// tied to SIGINT/SIGTERM, shut down gracefully.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipex/pkg/enginecfg"
	"pipex/pkg/ledger"
	"pipex/pkg/model"
	"pipex/pkg/pipeline"
	"pipex/pkg/plugin"
	"pipex/pkg/render"
	"pipex/pkg/specfile"

	"pipex/pkg/api"
)

func main() {
	initLogger()

	flags := enginecfg.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}
	cfg, err := enginecfg.Load(".", flags)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Profile == "" {
		slog.Error("no pipeline file given; pass --profile path/to/pipeline.yaml")
		os.Exit(1)
	}

	spec, err := specfile.Load(cfg.Profile)
	if err != nil {
		slog.Error("failed to load pipeline", "error", err)
		os.Exit(1)
	}
	applyDefaults(spec, cfg)

	registry := plugin.NewRegistry()
	core, coreReg := plugin.NewCorePlugin()
	registry.Register(coreReg)
	selectors := spec.Plugins
	if len(cfg.Plugins) > 0 {
		selectors = cfg.Plugins
	}
	if err := registry.Select(selectors); err != nil {
		slog.Error("failed to apply plugin selection", "error", err)
		os.Exit(1)
	}
	snapshot := registry.Freeze()

	pl, err := pipeline.New(spec, render.New(), snapshot)
	if err != nil {
		slog.Error("failed to plan pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reqCh := make(chan model.Request, 16)
	go serveRequests(ctx, spec.Name, core, pl, stop, reqCh)

	var server *http.Server
	if cfg.StatusAddr != "" {
		server = &http.Server{Addr: cfg.StatusAddr, Handler: api.Router(reqCh, cfg.JWTSecret)}
		go func() {
			slog.Info("status surface listening", "component", "api", "addr", cfg.StatusAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("status surface stopped", "component", "api", "error", err)
			}
		}()
	}

	if cfg.LedgerDSN != "" {
		db, err := ledger.Open(cfg.LedgerDSN)
		if err != nil {
			slog.Error("failed to open run ledger", "component", "ledger", "error", err)
			os.Exit(1)
		}
		events := make(chan model.Event, 256)
		svc := ledger.New(db, events)
		go svc.Run(ctx)
	}

	succeeded, err := pl.Run(ctx)
	if err != nil {
		slog.Error("pipeline finished with an error", "pipeline", spec.Name, "error", err)
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}

	if !succeeded {
		os.Exit(1)
	}
}

func initLogger() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
}

// applyDefaults lets CLI/env config override a process's unset scheduler
// and forks fields, without clobbering anything the pipeline file set
// explicitly.
func applyDefaults(spec *model.PipelineSpec, cfg *enginecfg.Config) {
	if spec.Workdir == "" {
		spec.Workdir = cfg.Workdir
	}
	if spec.Outdir == "" {
		spec.Outdir = cfg.Outdir
	}
	if spec.Forks == 0 {
		spec.Forks = cfg.Forks
	}
	for _, p := range spec.Processes {
		if p.Scheduler == "" {
			p.Scheduler = cfg.Scheduler
		}
		if p.Forks == 0 {
			p.Forks = spec.Forks
		}
	}
}

// serveRequests answers the status surface's read/shutdown requests from
// the core plugin's progress counters, the one piece of live state that
// survives outside the single-threaded pipeline run. Job-level detail
// beyond progress counts isn't tracked in memory once a job's goroutine
// returns, so OpGetJob reports not-found rather than guessing.
func serveRequests(ctx context.Context, pipelineName string, core *plugin.CorePlugin, pl *pipeline.Pipeline, stop context.CancelFunc, reqCh <-chan model.Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-reqCh:
			switch req.Operation {
			case model.OpGetPipeline:
				req.ReplyCh <- model.Response{Data: map[string]any{"name": pipelineName}}
			case model.OpGetProcess:
				req.ReplyCh <- model.Response{Data: core.Snapshot(req.Process)}
			case model.OpGetJob:
				req.ReplyCh <- model.Response{Error: fmt.Errorf("job-level status is not retained after the job's goroutine exits")}
			case model.OpShutdown:
				if !pl.Shutdown() {
					req.ReplyCh <- model.Response{Error: fmt.Errorf("shutdown vetoed by a plugin")}
					continue
				}
				req.ReplyCh <- model.Response{Data: map[string]any{"accepted": true}}
				stop()
			default:
				req.ReplyCh <- model.Response{Error: fmt.Errorf("unknown operation %q", req.Operation)}
			}
		}
	}
}
