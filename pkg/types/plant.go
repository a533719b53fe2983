package types

import (
	"fmt"
	"math"
)

// PlantKind distinguishes trees from bushes.
type PlantKind string

// Plant kinds.
const (
	KindTree PlantKind = "tree"
	KindBush PlantKind = "bush"
)

// Valid reports whether k is a known plant kind.
func (k PlantKind) Valid() bool {
	return k == KindTree || k == KindBush
}

// DefaultSpecies is the placeholder species for a plant created without a
// form payload.
func (k PlantKind) DefaultSpecies() string {
	if k == KindBush {
		return "Новый кустарник"
	}
	return "Новое дерево"
}

// Plant is a tree or bush placed at a single position.
// ID, Kind and Position are fixed at creation.
type Plant struct {
	ID            string       `json:"id"`
	Kind          PlantKind    `json:"type"`
	Species       string       `json:"species"`
	Age           float64      `json:"age"`
	CrownDiameter float64      `json:"crownDiameter"`
	Height        float64      `json:"height"`
	Damages       string       `json:"damages"`
	HealthStatus  HealthStatus `json:"healthStatus"`
	Position      Position     `json:"position"`
}

// PlantAttributes are the operator-entered fields of a plant, as collected
// by the plant form before the plant is placed.
type PlantAttributes struct {
	Species       string       `json:"species"`
	Age           float64      `json:"age"`
	Height        float64      `json:"height"`
	CrownDiameter float64      `json:"crownDiameter"`
	Damages       string       `json:"damages"`
	HealthStatus  HealthStatus `json:"healthStatus"`
}

// DefaultPlantAttributes returns the attributes of a quick-created plant.
func DefaultPlantAttributes(kind PlantKind) PlantAttributes {
	return PlantAttributes{
		Species:      kind.DefaultSpecies(),
		HealthStatus: HealthHealthy,
	}
}

// Validate checks numeric bounds and the health status.
func (a PlantAttributes) Validate() error {
	if err := nonNegative("age", a.Age); err != nil {
		return err
	}
	if err := nonNegative("height", a.Height); err != nil {
		return err
	}
	if err := nonNegative("crownDiameter", a.CrownDiameter); err != nil {
		return err
	}
	if !a.HealthStatus.Valid() {
		return fmt.Errorf("%w: healthStatus %q", ErrInvalidAttribute, a.HealthStatus)
	}
	return nil
}

// Attributes returns the mutable fields of the plant.
func (p Plant) Attributes() PlantAttributes {
	return PlantAttributes{
		Species:       p.Species,
		Age:           p.Age,
		Height:        p.Height,
		CrownDiameter: p.CrownDiameter,
		Damages:       p.Damages,
		HealthStatus:  p.HealthStatus,
	}
}

// NewPlant assembles a plant from its parts.
func NewPlant(id string, kind PlantKind, attrs PlantAttributes, pos Position) Plant {
	return Plant{
		ID:            id,
		Kind:          kind,
		Species:       attrs.Species,
		Age:           attrs.Age,
		CrownDiameter: attrs.CrownDiameter,
		Height:        attrs.Height,
		Damages:       attrs.Damages,
		HealthStatus:  attrs.HealthStatus,
		Position:      pos,
	}
}

func nonNegative(field string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number >= 0, got %v", ErrInvalidAttribute, field, v)
	}
	return nil
}
