// Package seed holds the demonstration inventory of the Saratov park the
// application was first built for.
package seed

import "github.com/mesh-intelligence/greenmap/pkg/types"

// Center is the map center of the demonstration park.
var Center = types.Position{Lat: 51.533562, Lng: 46.034266}

// Plants returns the demonstration plants.
func Plants() []types.Plant {
	return []types.Plant{
		{
			ID:            "1",
			Kind:          types.KindTree,
			Species:       "Клен ясенелистный",
			Age:           15,
			CrownDiameter: 4.5,
			Height:        12,
			Damages:       "Небольшое повреждение коры",
			HealthStatus:  types.HealthSatisfactory,
			Position:      types.Position{Lat: 51.533562, Lng: 46.034266},
		},
		{
			ID:            "2",
			Kind:          types.KindTree,
			Species:       "Липа мелколистная",
			Age:           20,
			CrownDiameter: 5.2,
			Height:        15,
			Damages:       "Отсутствуют",
			HealthStatus:  types.HealthHealthy,
			Position:      types.Position{Lat: 51.535, Lng: 46.036},
		},
		{
			ID:            "3",
			Kind:          types.KindBush,
			Species:       "Сирень обыкновенная",
			Age:           8,
			CrownDiameter: 2.1,
			Height:        3.5,
			Damages:       "Сухие ветви",
			HealthStatus:  types.HealthSatisfactory,
			Position:      types.Position{Lat: 51.532, Lng: 46.037},
		},
	}
}

// Lawns returns the demonstration lawns.
func Lawns() []types.Lawn {
	return []types.Lawn{
		{
			ID:           "lawn1",
			Area:         450,
			GrassType:    "Мятлик луговой",
			HealthStatus: types.HealthHealthy,
			Boundary: []types.Position{
				{Lat: 51.534, Lng: 46.035},
				{Lat: 51.534, Lng: 46.036},
				{Lat: 51.533, Lng: 46.036},
				{Lat: 51.533, Lng: 46.035},
			},
		},
		{
			ID:           "lawn2",
			Area:         320,
			GrassType:    "Овсяница красная",
			HealthStatus: types.HealthSatisfactory,
			Boundary: []types.Position{
				{Lat: 51.532, Lng: 46.0345},
				{Lat: 51.532, Lng: 46.0355},
				{Lat: 51.5315, Lng: 46.0355},
				{Lat: 51.5315, Lng: 46.0345},
			},
		},
	}
}

// Snapshot returns the whole demonstration inventory.
func Snapshot() types.Snapshot {
	return types.Snapshot{Plants: Plants(), Lawns: Lawns()}
}
