package types

import "fmt"

// DefaultGrassType is the placeholder grass type of a lawn created without a
// form payload.
const DefaultGrassType = "Новый газон"

// Lawn is a polygonal grass area. Area is entered by the operator and is
// never derived from Boundary. ID and Boundary are fixed at creation.
type Lawn struct {
	ID           string       `json:"id"`
	Area         float64      `json:"area"`
	GrassType    string       `json:"grassType"`
	HealthStatus HealthStatus `json:"healthStatus"`
	Boundary     []Position   `json:"positions"`
}

// LawnAttributes are the operator-entered fields of a lawn.
type LawnAttributes struct {
	GrassType    string       `json:"grassType"`
	Area         float64      `json:"area"`
	HealthStatus HealthStatus `json:"healthStatus"`
}

// DefaultLawnAttributes returns the attributes of a quick-created lawn.
func DefaultLawnAttributes() LawnAttributes {
	return LawnAttributes{
		GrassType:    DefaultGrassType,
		HealthStatus: HealthHealthy,
	}
}

// Validate checks the area bound and the health status.
func (a LawnAttributes) Validate() error {
	if err := nonNegative("area", a.Area); err != nil {
		return err
	}
	if !a.HealthStatus.Valid() {
		return fmt.Errorf("%w: healthStatus %q", ErrInvalidAttribute, a.HealthStatus)
	}
	return nil
}

// Attributes returns the mutable fields of the lawn.
func (l Lawn) Attributes() LawnAttributes {
	return LawnAttributes{
		GrassType:    l.GrassType,
		Area:         l.Area,
		HealthStatus: l.HealthStatus,
	}
}

// Clone returns a copy that shares no memory with l.
func (l Lawn) Clone() Lawn {
	out := l
	out.Boundary = append([]Position(nil), l.Boundary...)
	return out
}

// NewLawn assembles a lawn from its parts. The boundary is copied.
func NewLawn(id string, attrs LawnAttributes, boundary []Position) Lawn {
	return Lawn{
		ID:           id,
		Area:         attrs.Area,
		GrassType:    attrs.GrassType,
		HealthStatus: attrs.HealthStatus,
		Boundary:     append([]Position(nil), boundary...),
	}
}
