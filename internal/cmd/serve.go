package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yaelahrip/botasaurus-requests/internal/config"
	errwrap "github.com/yaelahrip/botasaurus-requests/internal/errors"
	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/metrics"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	"github.com/yaelahrip/botasaurus-requests/internal/server"
	"github.com/yaelahrip/botasaurus-requests/internal/server/handlers"
	"github.com/yaelahrip/botasaurus-requests/internal/upstream"
)

// gatewayStack is everything the HTTP server needs to answer /api/request.
type gatewayStack struct {
	gate       *gateway.Gate
	stager     *gateway.Stager
	pool       *gateway.Pool
	normalizer *gateway.Normalizer
	dispatcher *gateway.Dispatcher
	profile    string
}

// buildGateway wires the gate, staging, worker pool and engine from cfg.
// A nil engine builds the TLS client from cfg.Engine.
func buildGateway(cfg *config.Config, engine gateway.Engine) (*gatewayStack, error) {
	profile := ""
	if engine == nil {
		client, err := upstream.New(upstream.Config{
			ClientProfile:      cfg.Engine.ClientProfile,
			Timeout:            cfg.Engine.Timeout,
			FollowRedirects:    cfg.Engine.FollowRedirects,
			InsecureSkipVerify: cfg.Engine.InsecureSkipVerify,
			ProxyURL:           cfg.Engine.ProxyURL,
			MaxBodyBytes:       cfg.Engine.MaxBodyBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("create engine: %w", err)
		}
		engine = client
		profile = client.Profile()
	}

	stager := &gateway.Stager{
		Dir:      cfg.Gateway.StagingDir,
		MaxBytes: cfg.Gateway.MaxUploadBytes,
	}
	if err := stager.Writable(); err != nil {
		return nil, fmt.Errorf("staging directory: %w", err)
	}

	pool := gateway.NewPool(cfg.Gateway.Workers)
	stack := &gatewayStack{
		gate:   gateway.NewGate(cfg.Gateway.APIKeys, gateway.NewMemoryWindowStore(), cfg.Gateway.RateLimit, cfg.Gateway.RateWindow),
		stager: stager,
		pool:   pool,
		normalizer: &gateway.Normalizer{
			Stager:       stager,
			MaxBodyBytes: cfg.Gateway.MaxBodyBytes,
		},
		profile: profile,
	}
	stack.dispatcher = &gateway.Dispatcher{
		Engine:  engine,
		Pool:    pool,
		Timeout: cfg.Gateway.UpstreamTimeout,
		Observe: func(method gateway.Method, elapsed time.Duration, err error) {
			metrics.RecordDispatch(string(method), err == nil, elapsed)
			metrics.SetPoolGauges(pool.InFlight(), pool.Queued())
		},
	}
	return stack, nil
}

// registerHealthChecks installs the gateway's readiness checks on hm.
func (g *gatewayStack) registerHealthChecks(hm *handlers.HealthManager, metricsEnabled bool) {
	hm.RegisterChecker("worker_pool", handlers.HealthCheckFunc(func(ctx context.Context) error {
		if !g.pool.Running() {
			return errwrap.NewServiceUnavailableError("worker pool is closed")
		}
		return nil
	}))
	hm.RegisterChecker("staging_dir", handlers.HealthCheckFunc(func(ctx context.Context) error {
		return g.stager.Writable()
	}))
	hm.RegisterChecker("api_keys", handlers.HealthCheckFunc(func(ctx context.Context) error {
		if g.gate.KeyCount() == 0 {
			return fmt.Errorf("%w: no api keys configured", handlers.ErrDegraded)
		}
		return nil
	}))
	if metricsEnabled {
		hm.RegisterChecker("telemetry", handlers.HealthCheckFunc(func(ctx context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return errwrap.NewInternalError("telemetry system not initialized")
			}
			return nil
		}))
	}
}

// reload re-reads the config file and applies the settings that can change
// without a restart: the API key allow-list and the log level.
func (g *gatewayStack) reload(ctx context.Context, v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	g.gate.ReplaceKeys(cfg.Gateway.APIKeys)
	if err := observability.ReloadServerLogLevel(cfg.Logging.Level); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "log level reload failed")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	Long: `Start the gateway HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload API keys and log level from the config file

HTTPS is served when server.tls_cert_file and server.tls_key_file are set.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	identity := GetAppIdentity()
	cfg := loadConfig()
	namespace := identity.TelemetryNamespace()

	if err := observability.InitServerLogger(observability.LoggerOptions{
		Service:   identity.BinaryName,
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	}); err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "logger initialization failed")
	}

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
	} else {
		observability.DisableMetrics()
	}
	metrics.SetServerStartTime(time.Now().Unix())

	stack, err := buildGateway(cfg, nil)
	if err != nil {
		return errwrap.WrapConfigInvalid(cmd.Context(), err, "gateway initialization failed")
	}

	if stack.gate.KeyCount() == 0 {
		observability.ServerLogger.Warn("No API keys configured; every gateway request will be rejected",
			zap.String("env", identity.EnvKey("GATEWAY_API_KEYS")))
	}

	observability.ServerLogger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("version", versionInfo.Version),
		zap.String("config", configSource()),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("tls", cfg.Server.TLSEnabled()),
		zap.Int("api_keys", stack.gate.KeyCount()),
		zap.Int("rate_limit", cfg.Gateway.RateLimit),
		zap.Duration("rate_window", cfg.Gateway.RateWindow),
		zap.Int("workers", stack.pool.Size()),
		zap.String("client_profile", stack.profile),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	hm := handlers.NewHealthManager(versionInfo.Version)
	stack.registerHealthChecks(hm, cfg.Metrics.Enabled)
	handlers.SetAppIdentity(identity)

	srv := server.New(server.Options{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
		Gate:         stack.gate,
		Normalizer:   stack.normalizer,
		Dispatcher:   stack.dispatcher,
		Health:       hm,
		MetricsPort:  cfg.Metrics.Port,
		AdminToken:   os.Getenv(identity.EnvKey("ADMIN_TOKEN")),
	})

	stopped := make(chan struct{})
	registerShutdown(srv, stack, cfg.Server.ShutdownTimeout, stopped)

	signals.OnReload(func(ctx context.Context) error {
		observability.ServerLogger.Info("Received SIGHUP: reloading configuration")
		if err := stack.reload(ctx, viper.GetViper()); err != nil {
			observability.ServerLogger.Error("Configuration reload failed",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Error(err))
			return err
		}
		observability.ServerLogger.Info("Configuration reloaded",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Int("api_keys", stack.gate.KeyCount()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		observability.ServerLogger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()
	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			observability.ServerLogger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		_ = stack.pool.Close()
		return errwrap.WrapInternal(cmd.Context(), err, "server error")
	case <-stopped:
		return nil
	}
}

// registerShutdown installs the shutdown sequence. Handlers run last
// registered first: stop accepting requests, drain the worker pool, stop the
// exporter, then flush the logger and close stopped.
func registerShutdown(srv *server.Server, stack *gatewayStack, timeout time.Duration, stopped chan<- struct{}) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	signals.OnShutdown(func(ctx context.Context) error {
		defer close(stopped)
		if err := observability.ServerLogger.Sync(); err != nil {
			observability.ServerLogger.Debug("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if err := observability.StopMetrics(); err != nil {
			observability.ServerLogger.Warn("Failed to stop metrics exporter", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if err := stack.pool.Close(); err != nil {
			return errwrap.WrapInternal(ctx, err, "worker pool shutdown failed")
		}
		observability.ServerLogger.Info("Worker pool drained")
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		observability.ServerLogger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		observability.ServerLogger.Info("HTTP server stopped gracefully")
		return nil
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "server host (default from server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (default from server.port)")
	serveCmd.Flags().String("tls-cert", "", "TLS certificate file")
	serveCmd.Flags().String("tls-key", "", "TLS private key file")
	serveCmd.Flags().Int("workers", 0, "outbound worker pool size")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.tls_cert_file", serveCmd.Flags().Lookup("tls-cert"))
	_ = viper.BindPFlag("server.tls_key_file", serveCmd.Flags().Lookup("tls-key"))
	_ = viper.BindPFlag("gateway.workers", serveCmd.Flags().Lookup("workers"))
}
