package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/config"
	"github.com/MJE43/blackjack-advisor-go/internal/logging"
	"github.com/MJE43/blackjack-advisor-go/internal/montecarlo"
)

// app carries what every subcommand needs once flags and config are read.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:          "advisor",
		Short:        "Blackjack decision engine: hand analysis, simulation and bet sizing",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-development", false, "console logs instead of JSON")
	flags.String("tables", "", "YAML file overriding the dealer and prior tables")
	a.bind("log.level", flags.Lookup("log-level"))
	a.bind("log.development", flags.Lookup("log-development"))
	a.bind("tables.path", flags.Lookup("tables"))

	cmd.AddCommand(
		newServeCmd(a),
		newAnalyzeCmd(a),
		newSimulateCmd(a),
		newCountCmd(a),
	)
	return cmd
}

// bind lets a flag override a config key when it is set on the command line.
func (a *app) bind(key string, f *pflag.Flag) {
	_ = a.v.BindPFlag(key, f)
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) tables() (*blackjack.Tables, error) {
	if a.cfg.Tables.Path == "" {
		return blackjack.DefaultTables(), nil
	}
	t, err := blackjack.LoadTables(a.cfg.Tables.Path)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	a.logger.Info("tables_loaded", zap.String("path", a.cfg.Tables.Path))
	return t, nil
}

func (a *app) analyzer() (*analysis.Analyzer, error) {
	t, err := a.tables()
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(t, analysis.Options{
		Tolerance:     a.cfg.Engine.Tolerance,
		MaxIterations: a.cfg.Engine.MaxIterations,
		Intervals:     a.cfg.Engine.Intervals,
	}, a.logger), nil
}

func (a *app) simulator() *montecarlo.Simulator {
	return montecarlo.NewSimulator(montecarlo.Config{
		Workers:   a.cfg.Engine.Workers,
		BatchSize: a.cfg.Engine.BatchSize,
	}, a.logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
