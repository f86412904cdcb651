package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "cookbook/internal/config/file"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write cookbook settings",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, hd, err := settings(cmd)
			if err != nil {
				return err
			}
			p := newPrinter(cfg.Output, cmd.OutOrStdout())
			if p.isJSON() {
				return p.json(cfg)
			}
			p.kv([][2]string{
				{"Home", hd.Root()},
				{"Config file", hd.ConfigPath()},
				{"Database", cfg.Database},
				{"Parallel", fmt.Sprintf("%d", cfg.Parallel)},
				{"Log level", cfg.LogLevel},
				{"Output", cfg.Output},
			})
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the home directory's config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			cfg, hd, err := settings(cmd)
			if err != nil {
				return err
			}
			path := hd.ConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := hd.EnsureExists(); err != nil {
				return err
			}
			store, err := configfile.NewStore(path)
			if err != nil {
				return err
			}
			if err := store.Save(cmd.Context(), cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	return cmd
}
