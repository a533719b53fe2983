package store

import "github.com/mesh-intelligence/greenmap/pkg/types"

// HealthCount is the number of entities in one health status.
type HealthCount struct {
	Status types.HealthStatus `json:"status"`
	Color  string             `json:"color"`
	Count  int                `json:"count"`
}

// CollectionSummary aggregates one collection. ByHealth lists every known
// status in severity order, including zero counts.
type CollectionSummary struct {
	Total    int           `json:"total"`
	ByHealth []HealthCount `json:"byHealth"`
}

// Summary aggregates both collections.
type Summary struct {
	Plants CollectionSummary `json:"plants"`
	Lawns  CollectionSummary `json:"lawns"`
}

// Total returns the number of entities across both collections.
func (s Summary) Total() int {
	return s.Plants.Total + s.Lawns.Total
}

// Count returns the number of entities in status across both collections.
func (s Summary) Count(status types.HealthStatus) int {
	return s.Plants.count(status) + s.Lawns.count(status)
}

func (c CollectionSummary) count(status types.HealthStatus) int {
	for _, hc := range c.ByHealth {
		if hc.Status == status {
			return hc.Count
		}
	}
	return 0
}

// Summarize counts entities per health status.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plants := make([]types.HealthStatus, len(s.plants))
	for i, p := range s.plants {
		plants[i] = p.HealthStatus
	}
	lawns := make([]types.HealthStatus, len(s.lawns))
	for i, l := range s.lawns {
		lawns[i] = l.HealthStatus
	}
	return Summary{Plants: summarize(plants), Lawns: summarize(lawns)}
}

func summarize(statuses []types.HealthStatus) CollectionSummary {
	counts := make(map[types.HealthStatus]int, len(types.HealthStatuses))
	for _, st := range statuses {
		counts[st]++
	}
	out := CollectionSummary{Total: len(statuses)}
	for _, st := range types.HealthStatuses {
		out.ByHealth = append(out.ByHealth, HealthCount{Status: st, Color: st.Color(), Count: counts[st]})
	}
	return out
}
