package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/greenmap/internal/creation"
	"github.com/mesh-intelligence/greenmap/pkg/greenmap"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

const sessionHelp = `commands:
  point <tree|bush> [key=value...]   start placing a plant; the next click places it
  polygon [key=value...]             start drawing a lawn
  click <lat,lng>                    map click at a position
  complete                           finish the lawn being drawn
  cancel                             leave the current creation mode
  mode                               show the creation mode
  list <plants|lawns>                list a collection
  show <plant|lawn> <id>             show one entity
  update <plant|lawn> <id> k=v...    change attributes
  delete <plant|lawn> <id>           remove an entity
  stats                              counts by health status
  address <lat,lng>                  reverse-geocode a position
  save                               retry saving and wait for the result
  quit                               leave the session`

var errQuit = errors.New("quit")

func (a *app) newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Annotate interactively, one command per line",
		Long: "Session keeps the inventory open and reads operator commands from stdin,\n" +
			"driving the creation modes the way map clicks do. Every change is saved\n" +
			"in the background; the session waits for the last save on exit.\n\n" + sessionHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *greenmap.Service) error {
				s := &session{app: a, cmd: cmd, svc: svc, out: cmd.OutOrStdout()}
				return s.run(cmd.InOrStdin())
			})
		},
	}
}

type session struct {
	app *app
	cmd *cobra.Command
	svc *greenmap.Service
	out io.Writer
}

func (s *session) run(in io.Reader) error {
	fmt.Fprintf(s.out, "%d plants, %d lawns loaded from %s\n",
		len(s.svc.Plants()), len(s.svc.Lawns()), s.svc.LoadResult().Source)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(s.out, "(%s)> ", s.svc.Mode().Mode)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		words, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			continue
		}
		if len(words) == 0 {
			continue
		}
		err = s.exec(words[0], words[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
	}
}

func (s *session) exec(name string, args []string) error {
	switch name {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(s.out, sessionHelp)
		return nil
	case "point":
		return s.point(args)
	case "polygon":
		return s.polygon(args)
	case "click":
		return s.click(args)
	case "complete":
		id, err := s.svc.CompletePolygon()
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "created lawn", id)
		return nil
	case "cancel":
		s.svc.Cancel()
		return nil
	case "mode":
		st := s.svc.Mode()
		switch st.Mode {
		case creation.ModePlacingPoint:
			fmt.Fprintf(s.out, "%s %s\n", st.Mode, st.Kind)
		case creation.ModeCollectingPolygon:
			fmt.Fprintf(s.out, "%s, %d vertices\n", st.Mode, len(st.Points))
		default:
			fmt.Fprintln(s.out, st.Mode)
		}
		return nil
	case "list":
		if len(args) != 1 {
			return errors.New("usage: list <plants|lawns>")
		}
		c, err := types.ParseCollection(args[0])
		if err != nil {
			return err
		}
		return s.app.printCollection(s.out, s.svc, c)
	case "show":
		if len(args) != 2 {
			return errors.New("usage: show <plant|lawn> <id>")
		}
		c, err := types.ParseCollection(args[0])
		if err != nil {
			return err
		}
		return s.app.printEntity(s.out, s.svc, c, args[1])
	case "update":
		if len(args) < 3 {
			return errors.New("usage: update <plant|lawn> <id> key=value...")
		}
		c, err := types.ParseCollection(args[0])
		if err != nil {
			return err
		}
		fields, err := parseFields(args[2:])
		if err != nil {
			return err
		}
		return updateEntity(s.svc, c, args[1], fields)
	case "delete":
		if len(args) != 2 {
			return errors.New("usage: delete <plant|lawn> <id>")
		}
		c, err := types.ParseCollection(args[0])
		if err != nil {
			return err
		}
		return s.svc.Delete(c, args[1])
	case "stats":
		return s.app.printSummary(commandContext(s.cmd), s.out, s.svc)
	case "address":
		pos, err := parsePosition(args...)
		if err != nil {
			return err
		}
		addr, err := s.svc.Address(commandContext(s.cmd), pos)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, addr.Formatted)
		return nil
	case "save":
		if err := s.svc.Retry(); err != nil {
			return err
		}
		if err := s.svc.Flush(commandContext(s.cmd)); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "saved")
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", name)
}

func (s *session) point(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: point <tree|bush> [key=value...]")
	}
	kind := types.PlantKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q (valid: tree, bush)", types.ErrInvalidAttribute, args[0])
	}
	fields, err := parseFields(args[1:])
	if err != nil {
		return err
	}
	attrs, err := plantAttributes(kind, fields)
	if err != nil {
		return err
	}
	return s.svc.BeginPoint(kind, attrs)
}

func (s *session) polygon(args []string) error {
	fields, err := parseFields(args)
	if err != nil {
		return err
	}
	attrs, err := lawnAttributes(fields)
	if err != nil {
		return err
	}
	return s.svc.BeginPolygon(attrs)
}

func (s *session) click(args []string) error {
	pos, err := parsePosition(args...)
	if err != nil {
		return err
	}
	res, err := s.svc.MapClick(pos)
	if err != nil {
		return err
	}
	switch {
	case !res.Consumed:
		fmt.Fprintln(s.out, "no creation mode active")
	case res.CreatedID != "":
		fmt.Fprintln(s.out, "created plant", res.CreatedID)
	default:
		fmt.Fprintf(s.out, "%d vertices\n", res.Vertices)
	}
	return nil
}
