// Package cmd assembles the binged command line.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/tphakala/binged/cmd/config"
	"github.com/tphakala/binged/cmd/movies"
	"github.com/tphakala/binged/cmd/serve"
	"github.com/tphakala/binged/internal/buildinfo"
	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/logger"
)

// skipSetupAnnotation marks commands that run without loading settings
const skipSetupAnnotation = "binged/skip-setup"

const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string
	var centralLogger *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:          "binged",
		Short:        "Track movies and shows you have watched or want to watch",
		Version:      build.GetVersion(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/binged, /etc/binged)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		movies.Command(settings),
		configcmd.Command(settings),
		versionCommand(build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if skipsSetup(cmd) {
			return nil
		}

		conf.SetConfigFile(configFile)
		loaded, err := conf.Load()
		if err != nil {
			return err
		}
		*settings = *loaded

		centralLogger, err = initLogging(settings)
		if err != nil {
			return err
		}

		initTelemetry(settings, build)
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		errors.FlushSentry(sentryFlushTimeout)
		if centralLogger != nil {
			return centralLogger.Close()
		}
		return nil
	}

	return rootCmd
}

// skipsSetup reports whether cmd or one of its parents opted out of setup.
func skipsSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[skipSetupAnnotation]; ok {
			return true
		}
	}
	return false
}

// initLogging builds the central logger from settings and installs it globally.
func initLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = string(logger.LogLevelDebug)
			cfg.Console = &console
		}
	}
	if cfg.Timezone == "" {
		cfg.Timezone = settings.Timezone
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}
	logger.SetGlobal(cl)
	return cl, nil
}

// initTelemetry enables Sentry when configured. Failures are logged, not fatal.
func initTelemetry(settings *conf.Settings, build *buildinfo.Context) {
	if !settings.Sentry.Enabled {
		return
	}
	if err := errors.InitSentry(settings.Sentry.DSN, build.Release(), settings.Sentry.Environment); err != nil {
		logger.Global().Module("main").Warn("sentry disabled", logger.Error(err))
	}
}

func versionCommand(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetupAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}
}
