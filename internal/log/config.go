package log

import (
	stdlog "log"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Config carries the logger settings from the relay configuration.
// Output is always JSON on stdout; the relay runs containerised and
// leaves formatting to the log collector.
type Config struct {
	Level       string `mapstructure:"level"`
	ServiceName string `mapstructure:"service_name"`
}

const defaultService = "relay"

var (
	global zerolog.Logger
	once   sync.Once
)

func init() {
	global = base(zerolog.InfoLevel, defaultService)
}

func base(lvl zerolog.Level, service string) zerolog.Logger {
	return zerolog.New(os.Stdout).Level(lvl).With().
		Timestamp().
		Str(FieldService, service).
		Logger()
}

// New builds a logger from cfg. An unknown level falls back to info
// and an empty service name to "relay".
func New(cfg Config) zerolog.Logger {
	service := cfg.ServiceName
	if service == "" {
		service = defaultService
	}
	return base(parseLevel(cfg.Level), service)
}

// Init installs the process-wide logger. Anything that writes through
// the stdlib logger, such as the http server's error log, is redirected
// into it so every line comes out as structured JSON.
func Init(cfg Config) {
	once.Do(func() {
		global = New(cfg)
		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

// L returns the process-wide logger.
func L() zerolog.Logger {
	return global
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
