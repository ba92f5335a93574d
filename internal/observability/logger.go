package observability

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used for CLI commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger is used for the HTTP gateway (STRUCTURED profile)
	ServerLogger *logging.Logger

	serverMu   sync.Mutex
	serverOpts LoggerOptions
)

// LoggerOptions configure the server logger.
type LoggerOptions struct {
	Service string

	// Level is one of trace, debug, info, warn, error.
	Level string

	// Profile is "simple" for console text or "structured" for JSON.
	Profile string

	// Namespace is attached to every record when set.
	Namespace string
}

// InitCLILogger initializes the CLI logger with SIMPLE profile
func InitCLILogger(serviceName string, verbose bool) error {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		return fmt.Errorf("initialize CLI logger: %w", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
	return nil
}

// InitServerLogger builds ServerLogger from opts.
func InitServerLogger(opts LoggerOptions) error {
	logger, err := newServerLogger(opts)
	if err != nil {
		return err
	}

	serverMu.Lock()
	ServerLogger = logger
	serverOpts = opts
	serverMu.Unlock()
	return nil
}

// ReloadServerLogLevel rebuilds ServerLogger with a new level and keeps the
// rest of the options. It is a no-op when the level is unchanged.
func ReloadServerLogLevel(level string) error {
	serverMu.Lock()
	opts := serverOpts
	serverMu.Unlock()

	if parseLogLevel(opts.Level) == parseLogLevel(level) && ServerLogger != nil {
		return nil
	}
	opts.Level = level
	return InitServerLogger(opts)
}

func newServerLogger(opts LoggerOptions) (*logging.Logger, error) {
	staticFields := make(map[string]any)
	if opts.Namespace != "" {
		staticFields["namespace"] = opts.Namespace
	}

	profile := logging.ProfileStructured
	format := "json"
	if strings.EqualFold(strings.TrimSpace(opts.Profile), "simple") {
		profile = logging.ProfileSimple
		format = "console"
	}

	config := &logging.LoggerConfig{
		Profile:      profile,
		DefaultLevel: parseLogLevel(opts.Level),
		Service:      opts.Service,
		Environment:  "production",
		StaticFields: staticFields,
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: format,
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
	if profile == logging.ProfileStructured {
		config.Middleware = []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		}
	}

	logger, err := logging.New(config)
	if err != nil {
		return nil, fmt.Errorf("initialize server logger: %w", err)
	}
	return logger, nil
}

// parseLogLevel converts string log level to logging severity string
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}
