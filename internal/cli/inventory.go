package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

const collectionArgHelp = "plant|lawn"

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <plants|lawns>",
		Short: "List the inventory of one collection",
		Example: `  greenmap list plants
  greenmap list lawns --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := types.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				return a.printCollection(cmd.OutOrStdout(), svc, c)
			})
		},
	}
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <" + collectionArgHelp + "> <id>",
		Short: "Show one plant or lawn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := types.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				return a.printEntity(cmd.OutOrStdout(), svc, c, args[1])
			})
		},
	}
}

func (a *app) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <" + collectionArgHelp + "> <id> key=value...",
		Short: "Change attributes of a plant or lawn",
		Long: "Update merges the given attributes into the entity. Position, boundary,\n" +
			"kind and id cannot be changed; delete and recreate the entity instead.",
		Example: `  greenmap update plant 1 health_status=unsatisfactory damages="Сломанная ветка"
  greenmap update lawn lawn1 area=640`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := types.ParseCollection(args[0])
			if err != nil {
				return err
			}
			fields, err := parseFields(args[2:])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				if err := updateEntity(svc, c, args[1], fields); err != nil {
					return err
				}
				return a.printEntity(cmd.OutOrStdout(), svc, c, args[1])
			})
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <" + collectionArgHelp + "> <id>",
		Short: "Remove a plant or lawn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := types.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				if err := svc.Delete(c, args[1]); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, map[string]string{"deleted": args[1], "type": c.Singular()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", c.Singular(), args[1])
				return nil
			})
		},
	}
}

// updateEntity applies key=value fields to the entity id in c.
func updateEntity(svc *greenmap.Service, c types.Collection, id string, fields map[string]string) error {
	switch c {
	case types.CollectionPlants:
		patch, err := types.PlantPatchFromFields(fields)
		if err != nil {
			return err
		}
		return svc.UpdatePlant(id, patch)
	case types.CollectionLawns:
		patch, err := types.LawnPatchFromFields(fields)
		if err != nil {
			return err
		}
		return svc.UpdateLawn(id, patch)
	}
	return fmt.Errorf("%w: %q", types.ErrInvalidCollection, c)
}

func (a *app) printCollection(w io.Writer, svc *greenmap.Service, c types.Collection) error {
	switch c {
	case types.CollectionPlants:
		if a.flags.jsonMode {
			return writeJSONTo(w, svc.Plants())
		}
		writePlants(w, svc.Plants())
	case types.CollectionLawns:
		if a.flags.jsonMode {
			return writeJSONTo(w, svc.Lawns())
		}
		writeLawns(w, svc.Lawns())
	}
	return nil
}

func (a *app) printEntity(w io.Writer, svc *greenmap.Service, c types.Collection, id string) error {
	switch c {
	case types.CollectionPlants:
		p, err := svc.Plant(id)
		if err != nil {
			return err
		}
		if a.flags.jsonMode {
			return writeJSONTo(w, p)
		}
		writePlantDetail(w, p)
	case types.CollectionLawns:
		l, err := svc.Lawn(id)
		if err != nil {
			return err
		}
		if a.flags.jsonMode {
			return writeJSONTo(w, l)
		}
		writeLawnDetail(w, l)
	}
	return nil
}

func writePlants(w io.Writer, plants []types.Plant) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSPECIES\tAGE\tHEIGHT\tCROWN\tHEALTH\tPOSITION")
	for _, p := range plants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\t%g\t%s\t%s\n",
			p.ID, p.Kind, p.Species, p.Age, p.Height, p.CrownDiameter, p.HealthStatus, p.Position)
	}
	tw.Flush()
}

func writeLawns(w io.Writer, lawns []types.Lawn) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGRASS\tAREA\tHEALTH\tVERTICES")
	for _, l := range lawns {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%d\n", l.ID, l.GrassType, l.Area, l.HealthStatus, len(l.Boundary))
	}
	tw.Flush()
}

func writePlantDetail(w io.Writer, p types.Plant) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", p.ID)
	fmt.Fprintf(tw, "type:\t%s\n", p.Kind)
	fmt.Fprintf(tw, "species:\t%s\n", p.Species)
	fmt.Fprintf(tw, "age:\t%g\n", p.Age)
	fmt.Fprintf(tw, "height:\t%g\n", p.Height)
	fmt.Fprintf(tw, "crown diameter:\t%g\n", p.CrownDiameter)
	fmt.Fprintf(tw, "damages:\t%s\n", p.Damages)
	fmt.Fprintf(tw, "health:\t%s (%s)\n", p.HealthStatus, p.HealthStatus.Label())
	fmt.Fprintf(tw, "position:\t%s\n", p.Position)
	tw.Flush()
}

func writeLawnDetail(w io.Writer, l types.Lawn) {
	vertices := make([]string, len(l.Boundary))
	for i, pos := range l.Boundary {
		vertices[i] = pos.String()
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", l.ID)
	fmt.Fprintf(tw, "grass type:\t%s\n", l.GrassType)
	fmt.Fprintf(tw, "area:\t%g\n", l.Area)
	fmt.Fprintf(tw, "health:\t%s (%s)\n", l.HealthStatus, l.HealthStatus.Label())
	fmt.Fprintf(tw, "boundary:\t%s\n", strings.Join(vertices, "; "))
	tw.Flush()
}
