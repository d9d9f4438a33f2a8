// Package cli implements the sqlprep command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kydance/sqlprep"
	"github.com/kydance/sqlprep/internal/config"
	"github.com/kydance/sqlprep/internal/logging"
)

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg       *config.Config
	logger    *zap.Logger
	converter *sqlprep.Converter
}

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "sqlprep",
		Short: "Rewrite SQL literals into prepared statement parameters",
		Long: `sqlprep rewrites SQL text that embeds literal values into a parameterized
statement: every literal becomes "?" and its value is collected into an ordered
parameter list. The raw text is also checked against common injection
patterns, and findings are reported as warnings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./sqlprep.yaml)")
	flags.String("driver", config.DefaultDriver, "database driver (sqlite, mysql, pgx)")
	flags.String("dsn", config.DefaultDSN, "data source name")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.Bool("inspect-params", true, "run libinjection over extracted string parameters")

	_ = a.v.BindPFlag("driver", flags.Lookup("driver"))
	_ = a.v.BindPFlag("dsn", flags.Lookup("dsn"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("inspect_params", flags.Lookup("inspect-params"))

	cmd.AddCommand(newConvertCmd(a))
	cmd.AddCommand(newExecCmd(a))
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.converter = sqlprep.New(
		sqlprep.WithLogger(logger),
		sqlprep.WithParamInspection(cfg.InspectParams),
		sqlprep.WithPreviewLength(cfg.PreviewLength),
	)
	return nil
}
