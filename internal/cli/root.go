// Package cli implements the greenmap command-line interface. Every command
// opens the annotation service (which loads the inventory), performs one
// operator action, and closes the service, waiting for the save to finish.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	remoteURL string
	jsonMode  bool
	verbose   bool
}

// app carries the state shared by the commands of one root command.
type app struct {
	flags rootFlags
}

// NewRootCmd creates the top-level "greenmap" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "greenmap",
		Short: "Inventory of trees, bushes and lawns on a map",
		Long: "greenmap records trees and bushes as map points and lawns as map polygons,\n" +
			"keeps their attributes, and syncs the inventory with a remote endpoint\n" +
			"and a local cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env GREENMAP_CONFIG_DIR)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "local cache directory (env GREENMAP_DATA_DIR)")
	pf.StringVar(&a.flags.remoteURL, "remote-url", "", "remote inventory endpoint, overrides remote.url")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newPlantCmd(),
		a.newLawnCmd(),
		a.newListCmd(),
		a.newShowCmd(),
		a.newUpdateCmd(),
		a.newDeleteCmd(),
		a.newStatsCmd(),
		a.newAddressCmd(),
		a.newSessionCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "greenmap:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// codedError attaches an exit code to an error.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// exitError wraps err with an explicit exit code.
func exitError(code int, err error) error {
	return &codedError{code: code, err: err}
}

// exitCode maps err to a process exit code. Persistence and unclassified
// system failures are system errors; everything the operator can fix is a
// user error.
func exitCode(err error) int {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	if types.IsPersistence(err) {
		return exitSysError
	}
	return exitUserError
}

func (a *app) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
