package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/classes"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/dispatcher"
	"github.com/areduca/classbuilder/internal/editor"
	"github.com/areduca/classbuilder/internal/events"
	"github.com/areduca/classbuilder/internal/influx"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/media"
	intOtel "github.com/areduca/classbuilder/internal/otel"
	"github.com/areduca/classbuilder/internal/server"
	"github.com/spf13/cobra"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

// closers run in reverse order on shutdown.
type closers []func() error

func (c *closers) add(f func() error) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			Logger.Warn("Shutdown step failed", "error", err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cleanup closers
	defer cleanup.run()

	logCfg := config.GetLoggingConfig()

	var logOut, otelOut io.Writer
	if err := os.MkdirAll(logCfg.Dir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logCfg.Dir)
	} else {
		logPath := logging.LogFilePath(logCfg.Dir, logging.DefaultServiceName, SessionStartTime)
		logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			Logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
		} else {
			cleanup.add(logFile.Close)
			logOut = io.MultiWriter(os.Stdout, logFile)
			otelOut = logFile
			Logger.Info("Begin logging in logs directory", "path", logPath)
		}
	}

	// OTel provider: OTLP logs when enabled, Prometheus metrics independently
	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelOut,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
		Prometheus:   otelCfg.Prometheus,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OTel provider: %w", err)
	}
	cleanup.add(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(shutdownCtx)
	})

	var extra []slog.Handler
	if logCfg.Graylog.Enabled {
		h, closer, err := logging.NewGELFHandler(logCfg.Graylog.Address, logCfg.Level)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", logCfg.Graylog.Address)
		} else {
			extra = append(extra, h)
			cleanup.add(closer.Close)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if provider.Enabled() {
		otelLogProvider = provider.LoggerProvider()
	}
	SlogManager.SetServiceName(otelCfg.ServiceName)
	SlogManager.Setup(logOut, logCfg.Level, otelLogProvider, extra...)
	Logger = SlogManager.Logger()

	backend, err := openStorage(ctx)
	if err != nil {
		return err
	}
	cleanup.add(backend.Close)

	mediaCfg := config.GetMediaConfig()
	store, err := createMediaStore(ctx, mediaCfg)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		cleanup.add(c.Close)
	}

	publisher := createEventPublisher(ctx, config.GetEventsConfig())
	cleanup.add(publisher.Close)

	serverCfg := config.GetServerConfig()
	svc, err := classes.New(classes.Dependencies{
		Backend:       backend,
		Media:         store,
		Events:        publisher,
		LogManager:    SlogManager,
		ViewerBaseURL: serverCfg.ViewerBaseURL,
		OffloadInline: mediaCfg.OffloadInline,
	})
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return err
	}
	editor.Register(d, dispatcher.Logged())

	authCfg := config.GetAuthConfig()
	verifier := auth.NewVerifier(authCfg.Secret, authCfg.Issuer)
	if !verifier.Enabled() {
		Logger.Warn("auth.secret is empty, every request runs as the local owner", "owner", auth.LocalOwner)
	}

	deps := server.Dependencies{
		Classes:     svc,
		Dispatcher:  d,
		Media:       store,
		Verifier:    verifier,
		Metrics:     provider.MetricsHandler(),
		LogManager:  SlogManager,
		Config:      serverCfg,
		ServiceName: otelCfg.ServiceName,
	}
	if local, ok := store.(*media.Local); ok && strings.HasPrefix(mediaCfg.Local.BaseURL, "/") {
		deps.FilesDir = local.Dir()
		deps.FilesPath = mediaCfg.Local.BaseURL
	}
	srv, err := server.New(deps)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	Logger.Info("Server stopped")
	return nil
}

func createMediaStore(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Type {
	case "gcs":
		store, err := media.NewGCS(ctx, media.GCSConfig{
			Bucket:          cfg.GCS.Bucket,
			Prefix:          cfg.GCS.Prefix,
			CredentialsFile: cfg.GCS.CredentialsFile,
			PublicBaseURL:   cfg.GCS.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS media store: %w", err)
		}
		Logger.Info("GCS media store initialized", "bucket", cfg.GCS.Bucket)
		return store, nil

	case "local", "":
		store, err := media.NewLocal(cfg.Local.Dir, cfg.Local.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create local media store: %w", err)
		}
		Logger.Info("Local media store initialized", "dir", cfg.Local.Dir)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown media type %q", cfg.Type)
	}
}

// createEventPublisher fans events out to the log and every reachable sink.
// Sinks that cannot connect are skipped.
func createEventPublisher(ctx context.Context, cfg config.EventsConfig) events.Publisher {
	sinks := events.Fanout{events.NewLogPublisher(Logger)}

	if cfg.NATS.Enabled {
		p, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			Logger.Error("Failed to connect to NATS, events will not be published there", "error", err, "url", cfg.NATS.URL)
		} else {
			Logger.Info("Publishing class events to NATS", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
			sinks = append(sinks, p)
		}
	}

	if cfg.Influx.Enabled {
		m := influx.NewManager(newDBLogger(config.GetLoggingConfig().Level), cfg.Influx)
		if err := m.Connect(ctx); err != nil {
			Logger.Error("Failed to connect to InfluxDB, activity will not be recorded", "error", err, "url", m.URL())
		} else {
			Logger.Info("Recording class activity in InfluxDB", "url", m.URL(), "bucket", cfg.Influx.Bucket)
			sinks = append(sinks, events.NewInfluxRecorder(m))
		}
	}

	return events.NewAsync(sinks, cfg.BufferSize, Logger)
}
