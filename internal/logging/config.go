package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables that override the configured logger.
const (
	EnvLogLevel     = "MCTG_LOG_LEVEL"
	EnvLogTimestamp = "MCTG_LOG_TIMESTAMP"
	EnvLogNoColor   = "MCTG_LOG_NOCOLOR"
)

// Profile selects the logger defaults: the CLI logs at info level with timestamps,
// tests log at debug level without them.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config of the global logger.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Out       io.Writer
}

var configureOnce sync.Once

// ConfigureRuntime sets up the logger of the mctg commands with the configured level.
func ConfigureRuntime(level string) {
	Configure(ProfileRuntime, level)
}

// ConfigureTests sets up the logger for a package's TestMain.
func ConfigureTests() {
	Configure(ProfileTest, "")
}

// Configure sets up the global logger once per process. A non-empty level overrides the
// profile default; the environment overrides both.
func Configure(profile Profile, level string) {
	configureOnce.Do(func() {
		Apply(Resolve(profile, level))
	})
}

// Resolve computes the logger configuration without applying it.
func Resolve(profile Profile, level string) Config {
	cfg := defaultConfig(profile)
	if lvl, ok := ParseLevel(level); ok {
		cfg.Level = lvl
	}
	applyEnvOverrides(&cfg)
	return cfg
}

// Apply replaces the global logger.
func Apply(cfg Config) {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	zerolog.SetGlobalLevel(cfg.Level)
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := envBool(EnvLogTimestamp); ok {
		cfg.Timestamp = v
	}
	if v, ok := envBool(EnvLogNoColor); ok {
		cfg.NoColor = v
	}
}

// ParseLevel reads a level name as written in the configuration file or MCTG_LOG_LEVEL.
// Besides zerolog's names it accepts "warning" and "off"; an empty or unknown name is not ok.
func ParseLevel(raw string) (zerolog.Level, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "":
		return zerolog.InfoLevel, false
	case "warning":
		name = "warn"
	case "off", "none", "disable":
		name = "disabled"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return level, true
}

// envBool reads a boolean switch from the environment; unset or malformed values are ignored.
func envBool(key string) (bool, bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return false, false
	}
	return v, true
}
