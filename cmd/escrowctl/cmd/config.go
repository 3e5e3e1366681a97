package cmd

import (
	"os"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/code-escrow/pkg/metrics"
)

const (
	storeMemory   = "memory"
	storeBadger   = "badger"
	storePostgres = "postgres"
)

// Config is the escrowctl configuration. Every field can be set by flag or by
// its ESCROWCTL_ prefixed environment variable.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Store       string `mapstructure:"store"`
	DataDir     string `mapstructure:"data_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`

	AppName            string `mapstructure:"app_name"`
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	DumpMetrics bool `mapstructure:"metrics"`
}

var defaultConfig = Config{
	LogLevel: "warn",
	Store:    storeBadger,
	DataDir:  ".escrowctl",
	AppName:  "escrowctl",
}

func init() {
	viper.SetDefault("log_level", defaultConfig.LogLevel)
	viper.SetDefault("store", defaultConfig.Store)
	viper.SetDefault("data_dir", defaultConfig.DataDir)
	viper.SetDefault("app_name", defaultConfig.AppName)

	_ = viper.BindEnv("log_level", "ESCROWCTL_LOG_LEVEL")
	_ = viper.BindEnv("store", "ESCROWCTL_STORE")
	_ = viper.BindEnv("data_dir", "ESCROWCTL_DATA_DIR")
	_ = viper.BindEnv("postgres_dsn", "ESCROWCTL_POSTGRES_DSN")
	_ = viper.BindEnv("app_name", "ESCROWCTL_APP_NAME")
	_ = viper.BindEnv("new_relic_license_key", "ESCROWCTL_NEW_RELIC_LICENSE_KEY")
	_ = viper.BindEnv("metrics", "ESCROWCTL_METRICS")
}

func loadConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Store = strings.ToLower(config.Store)
	return &config, nil
}

func configureLogger(config *Config, app *newrelic.Application) {
	if app != nil {
		logrus.SetFormatter(metrics.NewNewRelicLogFormatter(app, &logrus.TextFormatter{}))
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
