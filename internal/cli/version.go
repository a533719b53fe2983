package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
)

const modulePath = "github.com/mesh-intelligence/greenmap"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the greenmap version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "greenmap v%s\nmodule: %s\n", greenmap.Version, modulePath)
			return nil
		},
	}
}
