// Package geometry validates point and polygon input before it becomes part
// of an entity. Validation is pure and deterministic.
//
// Point and Boundary can only be produced in a valid state by ValidatePoint
// and ValidatePolygon; their zero values report Valid() == false, which is
// how the entity store rejects geometry that skipped validation.
//
// Self-intersecting polygons are accepted.
package geometry

import (
	"fmt"
	"math"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// MinPolygonPoints is the smallest vertex count of a lawn boundary.
const MinPolygonPoints = 3

// Point is a validated position.
type Point struct {
	pos   types.Position
	valid bool
}

// Position returns the validated position.
func (p Point) Position() types.Position { return p.pos }

// Valid reports whether p came from ValidatePoint.
func (p Point) Valid() bool { return p.valid }

// Boundary is a validated polygon ring.
type Boundary struct {
	vertices []types.Position
}

// Vertices returns a copy of the ring.
func (b Boundary) Vertices() []types.Position {
	return append([]types.Position(nil), b.vertices...)
}

// Len returns the vertex count.
func (b Boundary) Len() int { return len(b.vertices) }

// Valid reports whether b came from ValidatePolygon.
func (b Boundary) Valid() bool { return len(b.vertices) >= MinPolygonPoints }

// ValidatePoint rejects non-finite and out-of-range coordinates.
func ValidatePoint(pos types.Position) (Point, error) {
	if !finite(pos.Lat) || pos.Lat < -90 || pos.Lat > 90 {
		return Point{}, fmt.Errorf("%w: latitude %v not in [-90, 90]", types.ErrOutOfRange, pos.Lat)
	}
	if !finite(pos.Lng) || pos.Lng < -180 || pos.Lng > 180 {
		return Point{}, fmt.Errorf("%w: longitude %v not in [-180, 180]", types.ErrOutOfRange, pos.Lng)
	}
	return Point{pos: pos, valid: true}, nil
}

// ValidatePolygon requires at least MinPolygonPoints valid vertices that
// are not all the same point.
func ValidatePolygon(points []types.Position) (Boundary, error) {
	if len(points) < MinPolygonPoints {
		return Boundary{}, fmt.Errorf("%w: got %d", types.ErrTooFewPoints, len(points))
	}
	for i, p := range points {
		if _, err := ValidatePoint(p); err != nil {
			return Boundary{}, fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	if allCoincident(points) {
		return Boundary{}, types.ErrDegenerateGeometry
	}
	return Boundary{vertices: append([]types.Position(nil), points...)}, nil
}

func allCoincident(points []types.Position) bool {
	first := points[0]
	for _, p := range points[1:] {
		if p != first {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
