// Package creation turns operator intents and map clicks into new entities.
//
// The controller holds exactly one State at a time. Idle lets map clicks
// fall through to the map surface; PlacingPoint creates a plant on the next
// valid click; CollectingPolygon accumulates vertices until Complete turns
// them into a lawn.
package creation

import (
	"fmt"

	"github.com/mesh-intelligence/greenmap/internal/geometry"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Creator is the part of the entity store the controller writes to.
type Creator interface {
	CreatePlant(kind types.PlantKind, attrs types.PlantAttributes, at geometry.Point) (string, error)
	CreateLawn(attrs types.LawnAttributes, boundary geometry.Boundary) (string, error)
}

// Mode names the active state.
type Mode string

// Modes.
const (
	ModeIdle              Mode = "idle"
	ModePlacingPoint      Mode = "placing_point"
	ModeCollectingPolygon Mode = "collecting_polygon"
)

// State is the controller state. Only the fields of the active Mode are set.
type State struct {
	Mode Mode

	// PlacingPoint
	Kind       types.PlantKind
	PlantAttrs types.PlantAttributes

	// CollectingPolygon
	LawnAttrs types.LawnAttributes
	Points    []types.Position
}

// ClickResult describes what a map click did.
type ClickResult struct {
	// Consumed is false in Idle: the click belongs to the map surface.
	Consumed bool
	// CreatedID is set when the click created a plant.
	CreatedID string
	// Vertices is the polygon vertex count after the click.
	Vertices int
}

// Controller is the creation-mode state machine. It is not safe for
// concurrent use; the service serializes operator events.
type Controller struct {
	store Creator
	state State
}

// New returns an idle controller writing to store.
func New(store Creator) *Controller {
	return &Controller{store: store, state: State{Mode: ModeIdle}}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Points = append([]types.Position(nil), c.state.Points...)
	return s
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.state.Mode }

// BeginPoint enters PlacingPoint for a plant of the given kind.
func (c *Controller) BeginPoint(kind types.PlantKind, attrs types.PlantAttributes) error {
	if c.state.Mode != ModeIdle {
		return fmt.Errorf("%w: %s", types.ErrModeAlreadyActive, c.state.Mode)
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q", types.ErrInvalidAttribute, kind)
	}
	if err := attrs.Validate(); err != nil {
		return err
	}
	c.state = State{Mode: ModePlacingPoint, Kind: kind, PlantAttrs: attrs}
	return nil
}

// BeginPolygon enters CollectingPolygon with no vertices.
func (c *Controller) BeginPolygon(attrs types.LawnAttributes) error {
	if c.state.Mode != ModeIdle {
		return fmt.Errorf("%w: %s", types.ErrModeAlreadyActive, c.state.Mode)
	}
	if err := attrs.Validate(); err != nil {
		return err
	}
	c.state = State{Mode: ModeCollectingPolygon, LawnAttrs: attrs, Points: []types.Position{}}
	return nil
}

// MapClick feeds one map click to the active mode. On error the state is
// unchanged and the click is still reported as consumed.
func (c *Controller) MapClick(pos types.Position) (ClickResult, error) {
	switch c.state.Mode {
	case ModePlacingPoint:
		at, err := geometry.ValidatePoint(pos)
		if err != nil {
			return ClickResult{Consumed: true}, err
		}
		id, err := c.store.CreatePlant(c.state.Kind, c.state.PlantAttrs, at)
		if err != nil {
			return ClickResult{Consumed: true}, err
		}
		c.state = State{Mode: ModeIdle}
		return ClickResult{Consumed: true, CreatedID: id}, nil

	case ModeCollectingPolygon:
		if _, err := geometry.ValidatePoint(pos); err != nil {
			return ClickResult{Consumed: true, Vertices: len(c.state.Points)}, err
		}
		c.state.Points = append(c.state.Points, pos)
		return ClickResult{Consumed: true, Vertices: len(c.state.Points)}, nil

	default:
		return ClickResult{}, nil
	}
}

// Complete closes the polygon under construction and creates the lawn.
// Too few or coincident vertices leave the controller collecting.
func (c *Controller) Complete() (string, error) {
	if c.state.Mode != ModeCollectingPolygon {
		return "", types.ErrNoPolygonInProgress
	}
	boundary, err := geometry.ValidatePolygon(c.state.Points)
	if err != nil {
		return "", err
	}
	id, err := c.store.CreateLawn(c.state.LawnAttrs, boundary)
	if err != nil {
		return "", err
	}
	c.state = State{Mode: ModeIdle}
	return id, nil
}

// Cancel abandons the active mode. It never touches the store and is a
// no-op in Idle.
func (c *Controller) Cancel() {
	c.state = State{Mode: ModeIdle}
}
