package types

import (
	"encoding/json"
	"fmt"
)

// Position is a latitude/longitude pair in degrees. Its JSON form is the
// two-element array [lat, lng] used by both the remote API and the cache.
type Position struct {
	Lat float64
	Lng float64
}

// MarshalJSON encodes the position as [lat, lng].
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// UnmarshalJSON decodes a [lat, lng] array.
func (p *Position) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("position: want [lat, lng], got %d values", len(pair))
	}
	p.Lat, p.Lng = pair[0], pair[1]
	return nil
}

// String formats the position as "lat,lng".
func (p Position) String() string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lng)
}

// HealthStatus is the assessed condition of a plant or lawn.
type HealthStatus string

// Health statuses in severity order.
const (
	HealthHealthy        HealthStatus = "healthy"
	HealthSatisfactory   HealthStatus = "satisfactory"
	HealthUnsatisfactory HealthStatus = "unsatisfactory"
)

// HealthStatuses lists every status, least severe first.
var HealthStatuses = []HealthStatus{
	HealthHealthy,
	HealthSatisfactory,
	HealthUnsatisfactory,
}

var healthLabels = map[HealthStatus]string{
	HealthHealthy:        "Здоровое",
	HealthSatisfactory:   "Удовлетворительное",
	HealthUnsatisfactory: "Неудовлетворительное",
}

var healthColors = map[HealthStatus]string{
	HealthHealthy:        "#22c55e",
	HealthSatisfactory:   "#eab308",
	HealthUnsatisfactory: "#ef4444",
}

// Valid reports whether h is one of the known statuses.
func (h HealthStatus) Valid() bool {
	_, ok := healthLabels[h]
	return ok
}

// Severity returns 0 for healthy, 1 for satisfactory, 2 for unsatisfactory
// and -1 for unknown values. Only used to order aggregate counts.
func (h HealthStatus) Severity() int {
	for i, s := range HealthStatuses {
		if s == h {
			return i
		}
	}
	return -1
}

// Label returns the operator-facing label.
func (h HealthStatus) Label() string {
	if l, ok := healthLabels[h]; ok {
		return l
	}
	return "Не указано"
}

// Color returns the render color for markers and polygon outlines.
func (h HealthStatus) Color() string {
	if c, ok := healthColors[h]; ok {
		return c
	}
	return healthColors[HealthHealthy]
}
