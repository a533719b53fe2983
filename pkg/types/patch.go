package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PlantPatch carries the plant fields to change; nil fields are left as is.
// There is no field for ID, Kind or Position, so they cannot be patched.
type PlantPatch struct {
	Species       *string
	Age           *float64
	Height        *float64
	CrownDiameter *float64
	Damages       *string
	HealthStatus  *HealthStatus
}

// LawnPatch carries the lawn fields to change; nil fields are left as is.
type LawnPatch struct {
	GrassType    *string
	Area         *float64
	HealthStatus *HealthStatus
}

// Apply merges the patch into attrs and returns the result.
func (p PlantPatch) Apply(attrs PlantAttributes) PlantAttributes {
	if p.Species != nil {
		attrs.Species = *p.Species
	}
	if p.Age != nil {
		attrs.Age = *p.Age
	}
	if p.Height != nil {
		attrs.Height = *p.Height
	}
	if p.CrownDiameter != nil {
		attrs.CrownDiameter = *p.CrownDiameter
	}
	if p.Damages != nil {
		attrs.Damages = *p.Damages
	}
	if p.HealthStatus != nil {
		attrs.HealthStatus = *p.HealthStatus
	}
	return attrs
}

// Apply merges the patch into attrs and returns the result.
func (p LawnPatch) Apply(attrs LawnAttributes) LawnAttributes {
	if p.GrassType != nil {
		attrs.GrassType = *p.GrassType
	}
	if p.Area != nil {
		attrs.Area = *p.Area
	}
	if p.HealthStatus != nil {
		attrs.HealthStatus = *p.HealthStatus
	}
	return attrs
}

// PlantPatchFromFields builds a patch from form-style key/value pairs.
// Keys match the JSON field names, case-insensitively, with '_' and '-'
// ignored. Immutable keys fail with ErrImmutableField.
func PlantPatchFromFields(fields map[string]string) (PlantPatch, error) {
	var p PlantPatch
	for key, raw := range fields {
		switch normalizeKey(key) {
		case "species":
			p.Species = &raw
		case "damages":
			p.Damages = &raw
		case "age":
			v, err := parseNumber(key, raw)
			if err != nil {
				return PlantPatch{}, err
			}
			p.Age = &v
		case "height":
			v, err := parseNumber(key, raw)
			if err != nil {
				return PlantPatch{}, err
			}
			p.Height = &v
		case "crowndiameter":
			v, err := parseNumber(key, raw)
			if err != nil {
				return PlantPatch{}, err
			}
			p.CrownDiameter = &v
		case "healthstatus", "health":
			h := HealthStatus(raw)
			p.HealthStatus = &h
		case "id", "type", "kind", "position":
			return PlantPatch{}, fmt.Errorf("%w: %s", ErrImmutableField, key)
		default:
			return PlantPatch{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	return p, nil
}

// LawnPatchFromFields builds a lawn patch from form-style key/value pairs.
func LawnPatchFromFields(fields map[string]string) (LawnPatch, error) {
	var p LawnPatch
	for key, raw := range fields {
		switch normalizeKey(key) {
		case "grasstype", "grass":
			p.GrassType = &raw
		case "area":
			v, err := parseNumber(key, raw)
			if err != nil {
				return LawnPatch{}, err
			}
			p.Area = &v
		case "healthstatus", "health":
			h := HealthStatus(raw)
			p.HealthStatus = &h
		case "id", "positions", "boundary":
			return LawnPatch{}, fmt.Errorf("%w: %s", ErrImmutableField, key)
		default:
			return LawnPatch{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	return p, nil
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}

func parseNumber(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%q is not a finite number", ErrInvalidAttribute, key, raw)
	}
	return v, nil
}
