// Package cmd implements escrowctl, a command line client that opens, takes
// and refunds escrows against a local ledger.
package cmd

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/code-payments/code-escrow/pkg/metrics"
)

var (
	config   *Config
	app      *newrelic.Application
	registry = prometheus.NewRegistry()

	// ctx carries the command's New Relic transaction, when configured, into
	// the runtime's method tracing.
	ctx = context.Background()

	// endCommand ends the command's New Relic transaction.
	endCommand = func(error) {}

	rootCmd = &cobra.Command{
		Use:               "escrowctl",
		Short:             "Two party token escrow client",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}
)

func init() {
	metrics.MustRegister(registry)

	flags := rootCmd.PersistentFlags()
	flags.String("store", defaultConfig.Store, "ledger backend: memory, badger or postgres")
	flags.String("data-dir", defaultConfig.DataDir, "badger ledger directory")
	flags.String("postgres-dsn", "", "postgres ledger connection string")
	flags.String("log-level", defaultConfig.LogLevel, "log level")
	flags.Bool("metrics", false, "print runtime metrics after the command")

	_ = viper.BindPFlag("store", flags.Lookup("store"))
	_ = viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("postgres_dsn", flags.Lookup("postgres-dsn"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("metrics", flags.Lookup("metrics"))

	rootCmd.AddCommand(
		keygenCmd,
		airdropCmd,
		createMintCmd,
		mintToCmd,
		makeCmd,
		takeCmd,
		refundCmd,
		escrowsCmd,
		balanceCmd,
		commitCmd,
	)
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		finish(err)
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	ctx = context.Background()

	var err error
	config, err = loadConfig()
	if err != nil {
		return errors.Wrap(err, "error loading config")
	}

	if len(config.NewRelicLicenseKey) > 0 {
		app, err = newrelic.NewApplication(
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logrus.WithError(err).Warn("error connecting to new relic")
			app = nil
		}
	}
	ctx, endCommand = metrics.StartTransaction(ctx, app, cmd.Name())

	configureLogger(config, app)
	return nil
}

func teardown(cmd *cobra.Command, _ []string) {
	if config != nil && config.DumpMetrics {
		families, err := registry.Gather()
		if err != nil {
			logrus.WithError(err).Warn("error gathering metrics")
		}

		encoder := expfmt.NewEncoder(cmd.ErrOrStderr(), expfmt.FmtText)
		for _, family := range families {
			if err := encoder.Encode(family); err != nil {
				logrus.WithError(err).Warn("error encoding metrics")
				break
			}
		}
	}

	finish(nil)
}

// finish ends the command's transaction and flushes New Relic.
func finish(err error) {
	endCommand(err)
	endCommand = func(error) {}

	if app != nil {
		app.Shutdown(5 * time.Second)
		app = nil
	}
}
