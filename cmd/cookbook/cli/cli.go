// Package cli implements the cookbook command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cookbook/internal/catalog/sqlite"
	"cookbook/internal/config"
	configfile "cookbook/internal/config/file"
	"cookbook/internal/dataset"
	"cookbook/internal/dataset/netcdf"
	"cookbook/internal/home"
	"cookbook/internal/logging"
)

// EngineFunc builds the dataset engine for a session.
type EngineFunc func(parallel int, logger *slog.Logger) dataset.Opener

func netcdfEngine(parallel int, logger *slog.Logger) dataset.Opener {
	return netcdf.New(netcdf.WithParallel(parallel), netcdf.WithLogger(logger))
}

// NewRootCommand returns the cookbook command with all subcommands wired in.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, netcdfEngine)
}

func newRootCommand(version string, engine EngineFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cookbook",
		Short:        "Read variables from a catalogued netCDF collection",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("home", "", "home directory (default: platform config dir)")
	cmd.PersistentFlags().String("db", "", "catalog database path (or "+config.EnvDatabase+" env)")
	cmd.PersistentFlags().Int("parallel", 0, "maximum concurrent file opens")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringSlice("debug", nil, "components to log at debug level (e.g. resolve,netcdf)")
	cmd.PersistentFlags().StringP("output", "o", "", "output format: table or json")

	cmd.AddCommand(
		newGetvarCmd(engine),
		newExperimentsCmd(),
		newVariablesCmd(),
		newFilesCmd(),
		newConfigCmd(),
		newVersionCmd(version),
	)
	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func resolveHome(flagValue string) (home.Dir, error) {
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}

// settings resolves the effective configuration for cmd: defaults, then the
// config file, then the environment, then flags that were set explicitly.
func settings(cmd *cobra.Command) (config.Config, home.Dir, error) {
	homeFlag, _ := cmd.Flags().GetString("home")
	hd, err := resolveHome(homeFlag)
	if err != nil {
		return config.Config{}, home.Dir{}, fmt.Errorf("resolve home directory: %w", err)
	}

	store, err := configfile.NewStore(hd.ConfigPath())
	if err != nil {
		return config.Config{}, hd, err
	}
	fileCfg, err := store.Load(cmd.Context())
	if err != nil {
		return config.Config{}, hd, err
	}

	cfg := config.Defaults(hd)
	if fileCfg != nil {
		cfg = cfg.Merge(*fileCfg)
	}
	flagCfg, err := flagLayer(cmd)
	if err != nil {
		return config.Config{}, hd, err
	}
	cfg = cfg.Merge(config.FromEnv(os.Getenv)).Merge(flagCfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, hd, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, hd, nil
}

func flagLayer(cmd *cobra.Command) (config.Config, error) {
	var c config.Config
	flags := cmd.Flags()
	if flags.Changed("db") {
		c.Database, _ = flags.GetString("db")
	}
	if flags.Changed("parallel") {
		c.Parallel, _ = flags.GetInt("parallel")
		if c.Parallel < 1 {
			return config.Config{}, fmt.Errorf("--parallel: must be at least 1, got %d", c.Parallel)
		}
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("output") {
		c.Output, _ = flags.GetString("output")
	}
	return c, nil
}

// session is the per-invocation state shared by catalog commands.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *sqlite.Catalog
	out     *printer
}

func newLogger(cmd *cobra.Command, w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	// Allow all levels; filtering done by ComponentFilterHandler.
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	filter := logging.NewComponentFilterHandler(base, level)
	components, _ := cmd.Flags().GetStringSlice("debug")
	for _, c := range components {
		filter.SetLevel(c, slog.LevelDebug)
	}
	return slog.New(filter), nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, _, err := settings(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	cat, err := sqlite.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.With("component", "cli").Debug("catalog opened", "path", cfg.Database)
	return &session{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		out:     newPrinter(cfg.Output, cmd.OutOrStdout()),
	}, nil
}

func (s *session) Close() error {
	return s.catalog.Close()
}
