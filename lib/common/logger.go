package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelTags are the level columns of a log line.
var levelTags = map[logger.LogLevel]string{
	logger.DEBUG:   "DEBUG",
	logger.INFO:    "INFO",
	logger.WARNING: "WARN",
	logger.ERROR:   "ERROR",
}

// jsonqLogger implements the ILogger interface with custom formatting. The
// level may be changed while other goroutines log.
type jsonqLogger struct {
	name   string
	level  atomic.Int32
	logger *log.Logger
}

func (l *jsonqLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *jsonqLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *jsonqLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *jsonqLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *jsonqLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

func (l *jsonqLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-10s | %s", "PANIC", l.name, message)
	panic(message)
}

func (l *jsonqLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-10s | %s", levelTags[level], l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// logOutput is where all loggers created by CreateLogger write. Responses go
// to stdout, so logs go to stderr.
var logOutput io.Writer = os.Stderr

// CreateLogger implements dragonboat's logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	return newLogger(pkgName, logOutput)
}

func newLogger(pkgName string, w io.Writer) *jsonqLogger {
	l := &jsonqLogger{
		name:   pkgName,
		logger: log.New(w, "", log.Ldate|log.Ltime),
	}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// LoggerNames lists the loggers of all jsonq packages.
var LoggerNames = []string{"engine", "db", "scheduler", "store"}

// ParseLoggerLevels parses a comma-separated list of LOGGER=LEVEL pairs, e.g.
// "db=debug,scheduler=warn". Every LOGGER must be one of LoggerNames.
func ParseLoggerLevels(s string) (map[string]string, error) {
	levels := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return levels, nil
	}
	for _, entry := range strings.Split(s, ",") {
		name, level, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid logger level format: %s (expected LOGGER=LEVEL)", entry)
		}
		name, level = strings.TrimSpace(name), strings.TrimSpace(level)
		if !slices.Contains(LoggerNames, name) {
			return nil, fmt.Errorf("unknown logger %q (expected one of: %s)", name, strings.Join(LoggerNames, ", "))
		}
		if _, err := ParseLogLevel(level); err != nil {
			return nil, err
		}
		levels[name] = level
	}
	return levels, nil
}

// effectiveLevels resolves the level of every jsonq logger: LogLevel, unless
// LoggerLevels names the logger.
func effectiveLevels(config EngineConfig) (map[string]logger.LogLevel, error) {
	base, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]logger.LogLevel, len(LoggerNames))
	for _, name := range LoggerNames {
		levels[name] = base
	}
	for name, value := range config.LoggerLevels {
		if !slices.Contains(LoggerNames, name) {
			return nil, fmt.Errorf("unknown logger %q", name)
		}
		level, err := ParseLogLevel(value)
		if err != nil {
			return nil, fmt.Errorf("logger %s: %w", name, err)
		}
		levels[name] = level
	}
	return levels, nil
}

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory and sets the configured
// level on every jsonq logger.
func InitLoggers(config EngineConfig) error {
	levels, err := effectiveLevels(config)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for name, level := range levels {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
