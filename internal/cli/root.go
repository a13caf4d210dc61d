// Package cli implements the amedas command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/amedas/jma"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	errOut  io.Writer
	logger  zerolog.Logger
	header  lipgloss.Style
}

// NewRootCommand builds the amedas command tree writing results to out and
// logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		out:    out,
		errOut: errOut,
		logger: zerolog.Nop(),
	}

	rootCmd := &cobra.Command{
		Use:   "amedas",
		Short: "Query AMeDAS observations from the JMA data tree",
		Long: `Fetches the AMeDAS station directory, the latest nationwide snapshot
and per-station 24 hour series, and classifies observations into marker keys.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.amedas.yaml)")
	flags.String("base-url", jma.DefaultBaseURL, "JMA AMeDAS base URL")
	flags.Duration("timeout", 10*time.Second, "per-request timeout")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")

	cobra.CheckErr(a.v.BindPFlag("base_url", flags.Lookup("base-url")))
	cobra.CheckErr(a.v.BindPFlag("timeout", flags.Lookup("timeout")))
	cobra.CheckErr(a.v.BindPFlag("log_level", flags.Lookup("log-level")))
	cobra.CheckErr(a.v.BindEnv("base_url", "JMA_BASE_URL"))
	cobra.CheckErr(a.v.BindEnv("timeout", "JMA_TIMEOUT"))
	cobra.CheckErr(a.v.BindEnv("log_level", "LOG_LEVEL"))
	cobra.CheckErr(a.v.BindEnv("timezone_offset", "AMEDAS_TIMEZONE_OFFSET"))
	a.v.SetDefault("timezone_offset", 9*time.Hour)

	rootCmd.AddCommand(
		a.stationsCommand(),
		a.latestCommand(),
		a.snapshotCommand(),
		a.seriesCommand(),
		a.rankingCommand(),
		a.keysCommand(),
	)
	return rootCmd
}

// initConfig reads the config file, if any, and sets up logging.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".amedas")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	level, err := zerolog.ParseLevel(a.v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.v.GetString("log_level"), err)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: a.errOut, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("file", used).Msg("using config file")
	}

	a.header = lipgloss.NewRenderer(a.out).NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	return nil
}

// location returns the fixed zone upstream timestamps are expressed in.
func (a *app) location() *time.Location {
	offset := a.v.GetDuration("timezone_offset")
	if offset == 9*time.Hour {
		return amedas.DefaultLocation()
	}
	return time.FixedZone("UTC"+offset.String(), int(offset.Seconds()))
}

func (a *app) client() *jma.Client {
	return jma.NewClient(jma.ClientConfig{
		BaseURL:  a.v.GetString("base_url"),
		Timeout:  a.v.GetDuration("timeout"),
		Location: a.location(),
		Logger:   a.logger.With().Str("component", "jma").Logger(),
	})
}
