package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/internal/store"
	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count plants and lawns by health status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *greenmap.Service) error {
				return a.printSummary(commandContext(cmd), cmd.OutOrStdout(), svc)
			})
		},
	}
}

// statsReport is the JSON form of stats.
type statsReport struct {
	store.Summary
	CacheUpdatedAt *time.Time `json:"cacheUpdatedAt,omitempty"`
}

func (a *app) printSummary(ctx context.Context, w io.Writer, svc *greenmap.Service) error {
	s := svc.Summary()
	updated, cached := svc.CacheUpdatedAt(ctx)
	if a.flags.jsonMode {
		report := statsReport{Summary: s}
		if cached {
			report.CacheUpdatedAt = &updated
		}
		return writeJSONTo(w, report)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HEALTH\tCOLOR\tPLANTS\tLAWNS")
	for i, status := range types.HealthStatuses {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", status.Label(), status.Color(),
			s.Plants.ByHealth[i].Count, s.Lawns.ByHealth[i].Count)
	}
	fmt.Fprintf(tw, "Всего\t\t%d\t%d\n", s.Plants.Total, s.Lawns.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if cached {
		fmt.Fprintln(w, "cache updated", updated.Local().Format(time.DateTime))
	}
	return nil
}

func (a *app) newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <lat> <lng>",
		Short: "Look up the street address of a position",
		Long: "Address reverse-geocodes a position through the configured geocoder\n" +
			"(geocoder.url in config.yaml, a Nominatim-compatible endpoint).",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args...)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				addr, err := svc.Address(commandContext(cmd), pos)
				if errors.Is(err, greenmap.ErrGeocoderDisabled) {
					return fmt.Errorf("%w: set geocoder.url in config.yaml", err)
				}
				if err != nil {
					if types.IsValidation(err) {
						return err
					}
					return exitError(exitSysError, err)
				}
				if a.flags.jsonMode {
					return printJSON(cmd, addr)
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr.Formatted)
				return nil
			})
		},
	}
}
