package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/puki/adapters"
	"github.com/momentics/puki/api"
	"github.com/momentics/puki/control"
	"github.com/momentics/puki/host"
	"github.com/momentics/puki/internal/logging"
	"github.com/momentics/puki/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

type serveFlags struct {
	configPath string
	port       int
	bind       string
	echo       bool
	cpu        int
	console    bool
	logLevel   string
	adminAddr  string
	duration   time.Duration
}

func serveCmd() *cobra.Command {
	return newServeCmd(new(serveFlags))
}

// newServeCmd binds the serve flags into f.
func newServeCmd(f *serveFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for TCP connections until interrupted",
		Long: `Listen on the configured port and report connection lifecycle events.

Settings come from defaults, then --config, then PUKI_* environment
variables, then flags. SIGINT or SIGTERM stops the reactor gracefully;
SIGHUP re-reads the config file and applies the log level; flags given
on the command line still win.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			reload := func() (*control.Config, error) { return resolveConfig(cmd, f) }
			return serve(cmd.Context(), cfg, reload, f.duration)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fl.IntVarP(&f.port, "port", "p", control.DefaultPort, "TCP port to listen on")
	fl.StringVar(&f.bind, "bind", "0.0.0.0", "IPv4 address to bind")
	fl.BoolVar(&f.echo, "echo", false, "Write received bytes back to the client")
	fl.IntVar(&f.cpu, "cpu", -1, "Pin the reactor thread to this CPU (-1 disables)")
	fl.BoolVar(&f.console, "console", false, "Log to stdout instead of syslog")
	fl.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fl.StringVar(&f.adminAddr, "admin-addr", "", "Admin HTTP address (empty disables)")
	fl.DurationVar(&f.duration, "duration", 0, "Stop after this long (0 runs until signaled)")
	return cmd
}

// resolveConfig loads file and env settings, then applies explicitly set flags.
func resolveConfig(cmd *cobra.Command, f *serveFlags) (*control.Config, error) {
	cfg, err := control.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	fl := cmd.Flags()
	if fl.Changed("port") {
		cfg.Port = f.port
	}
	if fl.Changed("bind") {
		cfg.Bind = f.bind
	}
	if fl.Changed("echo") {
		cfg.Echo = f.echo
	}
	if fl.Changed("cpu") {
		cfg.CPU = f.cpu
	}
	if fl.Changed("console") {
		cfg.Log.Console = f.console
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fl.Changed("admin-addr") {
		cfg.Admin.Addr = f.adminAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serverOptions maps a validated config onto reactor options.
func serverOptions(cfg *control.Config, log *slog.Logger, obs api.Observer) []server.ServerOption {
	bind, _ := cfg.BindAddr()
	return []server.ServerOption{
		server.WithBindAddr(bind),
		server.WithReadBufferSize(cfg.ReadBufferSize),
		server.WithMaxEvents(cfg.MaxEvents),
		server.WithEcho(cfg.Echo),
		server.WithCPU(cfg.CPU),
		server.WithLogger(log),
		server.WithObserver(obs),
	}
}

// buildHandler composes the lifecycle log handler with recovery, metrics
// and tracing, outermost first.
func buildHandler(log *slog.Logger, reg prometheus.Registerer) api.Handler {
	return adapters.Chain(adapters.NewLogHandler(log),
		adapters.Recovery(log),
		adapters.Metrics(reg, "puki"),
		adapters.Tracing(otel.GetTracerProvider()),
	)
}

// newConfigStore publishes cfg and keeps level in step with "log.level".
func newConfigStore(cfg *control.Config, level *slog.LevelVar) *control.ConfigStore {
	store := newConfigStore(cfg, level)
	return store
}

// serve runs the reactor until ctx ends. reload, if non-nil, re-resolves
// the configuration on SIGHUP.
func serve(parent context.Context, cfg *control.Config, reload func() (*control.Config, error), duration time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	level := new(slog.LevelVar)
	lv, _ := logging.ParseLevel(cfg.Log.Level)
	level.Set(lv)
	log := logging.New(logging.Options{Console: cfg.Log.Console, Level: level})
	slog.SetDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := control.NewMetrics(reg, "puki")

	store := newConfigStore(cfg, level)

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	control.RegisterServerProbes(probes, metrics, time.Now())

	handler := buildHandler(log, reg)
	if cfg.Async {
		async := adapters.NewAsync(handler)
		defer async.Close()
		probes.RegisterProbe("async.pending", func() any { return async.Pending() })
		handler = async
	}

	if cfg.Admin.Addr != "" {
		admin := control.NewAdminServer(cfg.Admin.Addr, control.NewAdminRouter(reg, probes, store), log)
		if err := admin.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			admin.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	if reload != nil {
		go reloadOnHangup(ctx, reload, store, log)
	}

	c := host.New(uint16(cfg.Port), handler, serverOptions(cfg, log, metrics)...)
	err := c.Run(ctx)
	if err != nil {
		log.Error("server stopped", "status", api.StatusOf(err).String(), "error", err)
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("server stopped", "status", api.Stopped.String())
	return nil
}

// reloadOnHangup applies reload on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, reload func() (*control.Config, error), store *control.ConfigStore, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			applyReload(reload, store, log)
		}
	}
}

// applyReload publishes the reloaded log level. The listener settings are
// fixed for the life of the reactor, so the store keeps the values it runs
// with.
func applyReload(reload func() (*control.Config, error), store *control.ConfigStore, log *slog.Logger) {
	cfg, err := reload()
	if err != nil {
		log.Warn("config reload failed", "error", err)
		return
	}
	store.SetConfig(map[string]any{"log.level": cfg.Log.Level})
	log.Info("config reloaded", "log_level", cfg.Log.Level)
}
