package util

import (
	"strings"

	"github.com/ValentinKolb/jsonq/lib/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// SetupEngineFlags adds the engine configuration flags to a command
func SetupEngineFlags(cmd *cobra.Command) {
	key := "providers"
	cmd.PersistentFlags().String(key, "mem=memory", WrapString("Comma-separated list of store providers to register. Format: NAME=TYPE where TYPE is one of: memory, sqlite"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be written to stderr (debug, info, warn, error)"))

	key = "log-levels"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated per-logger log levels overriding --log-level. Format: LOGGER=LEVEL where LOGGER is one of: engine, db, scheduler, store"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print the command metrics (Prometheus text format) after the run"))
}

// InitConfig loads .env files and sets up viper to read JSONQ_* environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("jsonq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetEngineConfig binds the command's flags and reads the engine configuration
// from viper
func GetEngineConfig(cmd *cobra.Command) (common.EngineConfig, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return common.EngineConfig{}, err
	}

	providers, err := common.ParseProviders(viper.GetString("providers"))
	if err != nil {
		return common.EngineConfig{}, err
	}

	loggerLevels, err := common.ParseLoggerLevels(viper.GetString("log-levels"))
	if err != nil {
		return common.EngineConfig{}, err
	}

	conf := common.EngineConfig{
		LogLevel:       viper.GetString("log-level"),
		LoggerLevels:   loggerLevels,
		Providers:      providers,
		MetricsEnabled: viper.GetBool("metrics"),
	}
	if err := conf.Validate(); err != nil {
		return common.EngineConfig{}, err
	}
	if err := common.InitLoggers(conf); err != nil {
		return common.EngineConfig{}, err
	}
	return conf, nil
}
