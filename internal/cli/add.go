package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// attrFlag maps an attribute flag to its form field key.
type attrFlag struct {
	name, field, usage string
}

var plantAttrFlags = []attrFlag{
	{"species", "species", "species name"},
	{"age", "age", "age in years"},
	{"height", "height", "height in meters"},
	{"crown-diameter", "crown_diameter", "crown diameter in meters"},
	{"damages", "damages", "description of damages"},
	{"health", "health_status", "healthy, satisfactory or unsatisfactory"},
}

var lawnAttrFlags = []attrFlag{
	{"grass-type", "grass_type", "grass type"},
	{"area", "area", "area in square meters"},
	{"health", "health_status", "healthy, satisfactory or unsatisfactory"},
}

// flagFields copies the attribute flags that were set into fields. Flags
// override key=value arguments for the same attribute.
func flagFields(cmd *cobra.Command, fields map[string]string, flags []attrFlag) {
	for _, f := range flags {
		if fl := cmd.Flags().Lookup(f.name); fl != nil && fl.Changed {
			for k := range fields {
				if normalizeFieldKey(k) == normalizeFieldKey(f.field) {
					delete(fields, k)
				}
			}
			fields[f.field] = fl.Value.String()
		}
	}
}

func normalizeFieldKey(k string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(k))
}

func (a *app) newPlantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plant",
		Short: "Add trees and bushes",
	}

	var (
		kind     string
		lat, lng float64
	)
	add := &cobra.Command{
		Use:   "add [key=value...]",
		Short: "Place a tree or bush at a position",
		Long: "Place a plant. Attributes come from flags or key=value pairs: species,\n" +
			"age, height, crown_diameter, damages, health_status (healthy|satisfactory|\n" +
			"unsatisfactory). Omitted attributes take the defaults of a quick-created plant.",
		Example: `  greenmap plant add --kind tree --lat 51.5336 --lng 46.0343 --species Дуб --age 40
  greenmap plant add --kind bush --lat 51.532 --lng 46.037 health_status=satisfactory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := types.PlantKind(kind)
			if !k.Valid() {
				return fmt.Errorf("%w: kind %q (valid: tree, bush)", types.ErrInvalidAttribute, kind)
			}
			fields, err := parseFields(args)
			if err != nil {
				return err
			}
			flagFields(cmd, fields, plantAttrFlags)
			attrs, err := plantAttributes(k, fields)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				// The same path a map click takes in placing mode.
				if err := svc.BeginPoint(k, attrs); err != nil {
					return err
				}
				res, err := svc.MapClick(types.Position{Lat: lat, Lng: lng})
				if err != nil {
					svc.Cancel()
					return err
				}
				p, err := svc.Plant(res.CreatedID)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, p)
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&kind, "kind", string(types.KindTree), "plant kind: tree or bush")
	add.Flags().Float64Var(&lat, "lat", 0, "latitude")
	add.Flags().Float64Var(&lng, "lng", 0, "longitude")
	_ = add.MarkFlagRequired("lat")
	_ = add.MarkFlagRequired("lng")
	for _, f := range plantAttrFlags {
		add.Flags().String(f.name, "", f.usage)
	}

	cmd.AddCommand(add)
	return cmd
}

func (a *app) newLawnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lawn",
		Short: "Add lawns",
	}

	var points []string
	add := &cobra.Command{
		Use:   "add --point lat,lng --point lat,lng --point lat,lng [key=value...]",
		Short: "Draw a lawn from boundary vertices",
		Long: "Draw a lawn. Each --point adds one boundary vertex in order; at least three\n" +
			"distinct vertices are required. Attributes come from flags or key=value pairs:\n" +
			"grass_type, area, health_status. The area is entered, not computed from the\n" +
			"boundary.",
		Example: `  greenmap lawn add --point 51.534,46.035 --point 51.534,46.036 --point 51.533,46.036 --grass-type Мятлик --area 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args)
			if err != nil {
				return err
			}
			flagFields(cmd, fields, lawnAttrFlags)
			attrs, err := lawnAttributes(fields)
			if err != nil {
				return err
			}
			vertices := make([]types.Position, 0, len(points))
			for _, raw := range points {
				pos, err := parsePosition(raw)
				if err != nil {
					return err
				}
				vertices = append(vertices, pos)
			}
			return a.withService(cmd, func(svc *greenmap.Service) error {
				if err := svc.BeginPolygon(attrs); err != nil {
					return err
				}
				for i, pos := range vertices {
					if _, err := svc.MapClick(pos); err != nil {
						svc.Cancel()
						return fmt.Errorf("point %d: %w", i+1, err)
					}
				}
				id, err := svc.CompletePolygon()
				if err != nil {
					svc.Cancel()
					return err
				}
				l, err := svc.Lawn(id)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, l)
				}
				fmt.Fprintln(cmd.OutOrStdout(), l.ID)
				return nil
			})
		},
	}
	add.Flags().StringArrayVar(&points, "point", nil, "boundary vertex as lat,lng (repeatable)")
	for _, f := range lawnAttrFlags {
		add.Flags().String(f.name, "", f.usage)
	}

	cmd.AddCommand(add)
	return cmd
}
