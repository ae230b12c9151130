package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sysdash/internal/api"
	"sysdash/internal/config"
	db "sysdash/internal/database"
	"sysdash/internal/logging"
	"sysdash/internal/metrics"
	"sysdash/internal/monitoring"
	"sysdash/internal/present"
	"sysdash/internal/telemetry"
	"sysdash/internal/websockets"
)

const shutdownTimeout = 5 * time.Second

// app holds what every command needs after configuration is loaded.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:   "sysdash",
		Short: "Host hardware and OS telemetry dashboard",
		Long: `sysdash polls CPU, memory, disk, GPU, network, battery and system
identity telemetry, normalizes it into display values and serves it as JSON
over HTTP and as a live WebSocket stream.

Examples:
  sysdash serve
  sysdash serve --port 9000 --interval 2s
  sysdash snapshot --groups cpu,memory
  SYSDASH_LOG_LEVEL=debug sysdash serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			cfg, err := config.Load(a.v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (JSON or YAML); created with defaults if missing")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(a.serveCmd(), a.snapshotCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sysdash version %s\n", version)
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Collect telemetry periodically and serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			defer a.logger.Sync()
			return a.serve(ctx)
		},
	}

	cmd.Flags().String("host", "", "listen host")
	cmd.Flags().Int("port", 0, "listen port")
	cmd.Flags().Duration("interval", 0, "collection interval")
	cmd.Flags().String("db", "", "history database path")
	cmd.Flags().Bool("no-history", false, "disable sample history")
	a.v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	a.v.BindPFlag("monitoring.interval", cmd.Flags().Lookup("interval"))
	a.v.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
			a.cfg.History.Enabled = false
		}
	}
	return cmd
}

func (a *app) newAggregator(observer monitoring.Observer) *monitoring.Aggregator {
	source := telemetry.NewHostSource(
		telemetry.WithLogger(a.logger.Named("telemetry")),
		telemetry.WithLoadSample(a.cfg.Monitoring.LoadSample),
	)
	opts := []monitoring.AggregatorOption{
		monitoring.WithLogger(a.logger.Named("aggregator")),
		monitoring.WithGroupTimeout(a.cfg.Monitoring.GroupTimeout),
	}
	if observer != nil {
		opts = append(opts, monitoring.WithObserver(observer))
	}
	return monitoring.NewAggregator(source, opts...)
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	m := metrics.New()
	renderer := present.NewRenderer(cfg.Normalizer())

	hub := websockets.NewHub(logger.Named("websocket"))
	go hub.Run(ctx)

	scheduler := monitoring.NewScheduler(
		a.newAggregator(m),
		cfg.Monitoring.Interval,
		monitoring.WithSchedulerLogger(logger.Named("scheduler")),
		monitoring.WithGroups(cfg.Groups()...),
		monitoring.WithErrorHandler(func(err error) {
			hub.Broadcast(websockets.MessageError, map[string]string{"error": err.Error()})
		}),
	)
	m.RegisterGauge("websocket_clients", "Connected dashboard clients.", func() float64 {
		return float64(hub.ClientCount())
	})

	handler := api.NewHandler(scheduler, renderer, logger.Named("api"))
	handler.Hub = hub
	handler.Metrics = m.Handler()

	var recorderDone chan struct{}
	var history chan *monitoring.Snapshot
	if cfg.History.Enabled {
		store, err := db.Open(cfg.Database.Path, logger.Named("database"))
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer store.Close()
		handler.History = store

		history = make(chan *monitoring.Snapshot, 16)
		recorderDone = make(chan struct{})
		recorder := db.NewRecorder(store, cfg.History.Retention, logger.Named("recorder"))
		go func() {
			recorder.Run(ctx, history)
			close(recorderDone)
		}()
	}

	scheduler.Subscribe(func(s *monitoring.Snapshot) {
		m.ObserveSnapshot(s)
		if err := hub.Broadcast(websockets.MessageSnapshot, renderer.Render(s)); err != nil {
			logger.Debugw("snapshot not broadcast", "error", err)
		}
		if history != nil {
			select {
			case history <- s:
			default:
				logger.Warnw("history writer is behind, dropping snapshot", "collectedAt", s.CollectedAt)
			}
		}
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("server starting", "address", server.Addr, "interval", cfg.Monitoring.Interval, "history", cfg.History.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	scheduler.Start(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Infow("shutting down")
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("server shutdown", "error", err)
	}

	if history != nil {
		close(history)
		<-recorderDone
	}
	return runErr
}

func (a *app) snapshotCmd() *cobra.Command {
	var raw bool
	var groupNames []string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Collect one snapshot and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(groupNames) == 0 {
				groupNames = a.cfg.Monitoring.Groups
			}
			groups, err := monitoring.ParseGroups(groupNames)
			if err != nil {
				return err
			}

			snapshot, err := a.newAggregator(nil).Collect(cmd.Context(), groups...)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if raw {
				return enc.Encode(snapshot)
			}
			return enc.Encode(present.NewRenderer(a.cfg.Normalizer()).Render(snapshot))
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw snapshot instead of display values")
	cmd.Flags().StringSliceVarP(&groupNames, "groups", "g", nil, "metric groups to collect (default all)")
	return cmd
}
