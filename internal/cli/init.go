package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/internal/paths"
	"github.com/mesh-intelligence/greenmap/internal/seed"
	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the local cache",
		Long: "Write config.yaml if it is missing, create the data directory and load the\n" +
			"inventory once. With --seed the demonstration park inventory is imported.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return exitError(exitSysError, fmt.Errorf("resolve config dir: %w", err))
			}
			dataDir := a.flags.dataDir
			if dataDir == "" {
				if dataDir, err = paths.DefaultDataDir(); err != nil {
					return exitError(exitSysError, fmt.Errorf("resolve data dir: %w", err))
				}
			}
			path, created, err := writeConfigIfMissing(configDir, dataDir)
			if err != nil {
				return exitError(exitSysError, fmt.Errorf("write config: %w", err))
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return exitError(exitUserError, err)
			}
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return exitError(exitSysError, fmt.Errorf("create data directory: %w", err))
			}

			return a.withService(cmd, func(svc *greenmap.Service) error {
				if withSeed {
					err := svc.Import(seed.Snapshot())
					switch {
					case errors.Is(err, types.ErrDuplicateID):
						fmt.Fprintln(cmd.OutOrStdout(), "seed inventory already present")
					case err != nil:
						return err
					default:
						fmt.Fprintf(cmd.OutOrStdout(), "imported %d plants and %d lawns\n",
							len(seed.Plants()), len(seed.Lawns()))
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "greenmap initialized (data: %s, inventory from %s)\n",
					cfg.DataDir, svc.LoadResult().Source)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "import the demonstration inventory")
	return cmd
}
