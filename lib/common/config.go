package common

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// --------------------------------------------------------------------------
// Provider kinds
// --------------------------------------------------------------------------

// ProviderKind names a built-in store implementation.
type ProviderKind string

const (
	ProviderMemory ProviderKind = "memory" // lib/store/mstore
	ProviderSQLite ProviderKind = "sqlite" // lib/store/sqlstore
)

// ParseProviderKind converts a provider kind name (case-insensitive).
func ParseProviderKind(kind string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "memory", "mem":
		return ProviderMemory, nil
	case "sqlite", "sql":
		return ProviderSQLite, nil
	default:
		return "", fmt.Errorf("invalid provider type: %s (expected one of: memory, sqlite)", kind)
	}
}

// ParseProviders parses a comma-separated list of NAME=TYPE pairs, e.g.
// "mem=memory,sql=sqlite".
func ParseProviders(s string) (map[string]ProviderKind, error) {
	providers := make(map[string]ProviderKind)
	if strings.TrimSpace(s) == "" {
		return providers, nil
	}
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(entry, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid provider format: %s (expected NAME=TYPE)", entry)
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("invalid provider format: %s (empty name)", entry)
		}
		kind, err := ParseProviderKind(parts[1])
		if err != nil {
			return nil, err
		}
		if _, dup := providers[name]; dup {
			return nil, fmt.Errorf("provider %s is configured twice", name)
		}
		providers[name] = kind
	}
	return providers, nil
}

// --------------------------------------------------------------------------
// Engine configuration struct
// --------------------------------------------------------------------------

// EngineConfig configures an engine.Engine.
type EngineConfig struct {
	// Logging configuration (debug, info, warn, error)
	LogLevel string

	// LoggerLevels overrides LogLevel for single loggers (see LoggerNames)
	LoggerLevels map[string]string

	// Providers maps provider names (as used in provisioning schemas) to the
	// built-in store implementation registered under them
	Providers map[string]ProviderKind

	// MetricsEnabled makes the CLI print command metrics after a run
	MetricsEnabled bool
}

// DefaultEngineConfig returns a configuration with the memory store
// registered as "mem" and log level info.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LogLevel:  "info",
		Providers: map[string]ProviderKind{"mem": ProviderMemory},
	}
}

// Validate checks the log levels and the provider kinds.
func (c *EngineConfig) Validate() error {
	if _, err := effectiveLevels(*c); err != nil {
		return err
	}
	for name, kind := range c.Providers {
		if _, err := ParseProviderKind(string(kind)); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *EngineConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	for _, name := range slices.Sorted(maps.Keys(c.LoggerLevels)) {
		addField("Log Level ("+name+")", c.LoggerLevels[name])
	}

	addSection("Metrics")
	addField("Enabled", fmt.Sprintf("%t", c.MetricsEnabled))

	addSection("Providers")
	for _, name := range slices.Sorted(maps.Keys(c.Providers)) {
		addField(name, string(c.Providers[name]))
	}
	return sb.String()
}
