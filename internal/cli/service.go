package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// closeTimeout bounds the final save when a command exits.
const closeTimeout = 30 * time.Second

// withService opens the service, runs fn, and closes the service. A failed
// final save is reported as a warning; the edit itself already happened.
func (a *app) withService(cmd *cobra.Command, fn func(svc *greenmap.Service) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return exitError(exitUserError, err)
	}
	ctx := commandContext(cmd)
	svc, err := greenmap.OpenConfig(ctx, cfg, a.logger(cmd.ErrOrStderr()))
	if err != nil {
		return exitError(exitSysError, err)
	}
	if res := svc.LoadResult(); res.RemoteErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: remote unavailable, using %s inventory: %v\n", res.Source, res.RemoteErr)
	}

	runErr := fn(svc)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := svc.Close(closeCtx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: changes kept locally but not saved everywhere: %v\n", err)
	}
	return runErr
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	return writeJSONTo(cmd.OutOrStdout(), v)
}

func writeJSONTo(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitSysError, fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// parseFields turns key=value arguments into a map.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", types.ErrInvalidAttribute, arg)
		}
		fields[k] = v
	}
	return fields, nil
}

// parsePosition parses "lat,lng" or two separate arguments.
func parsePosition(args ...string) (types.Position, error) {
	if len(args) == 1 {
		args = strings.Split(args[0], ",")
	}
	if len(args) != 2 {
		return types.Position{}, fmt.Errorf("%w: expected lat,lng", types.ErrOutOfRange)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return types.Position{}, fmt.Errorf("%w: latitude %q", types.ErrOutOfRange, args[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
	if err != nil {
		return types.Position{}, fmt.Errorf("%w: longitude %q", types.ErrOutOfRange, args[1])
	}
	return types.Position{Lat: lat, Lng: lng}, nil
}

// plantAttributes builds form attributes for kind from key=value fields.
func plantAttributes(kind types.PlantKind, fields map[string]string) (types.PlantAttributes, error) {
	patch, err := types.PlantPatchFromFields(fields)
	if err != nil {
		return types.PlantAttributes{}, err
	}
	attrs := patch.Apply(types.DefaultPlantAttributes(kind))
	return attrs, attrs.Validate()
}

// lawnAttributes builds lawn form attributes from key=value fields.
func lawnAttributes(fields map[string]string) (types.LawnAttributes, error) {
	patch, err := types.LawnPatchFromFields(fields)
	if err != nil {
		return types.LawnAttributes{}, err
	}
	attrs := patch.Apply(types.DefaultLawnAttributes())
	return attrs, attrs.Validate()
}
