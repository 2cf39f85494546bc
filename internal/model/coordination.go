package model

import "time"

// Pattern classifies the temporal shape of a coordination cluster
type Pattern string

const (
	PatternSimultaneous Pattern = "simultaneous" // Everything inside an hour
	PatternCascade      Pattern = "cascade"      // Spread within 30% of the window
	PatternBurst        Pattern = "burst"
)

// CoordinationEvent is a temporally clustered group of sources referencing one claim
type CoordinationEvent struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id,omitempty"`
	ClusterID       string    `json:"cluster_id"`
	ClaimID         int64     `json:"claim_id"`
	SourceIDs       []int64   `json:"source_ids"`
	SourceCount     int       `json:"source_count"`
	WindowHours     float64   `json:"window_hours"` // Observed spread, or the scan window when spread is 0
	TemporalDensity float64   `json:"temporal_density"`
	Score           float64   `json:"coordination_score"`
	Pattern         Pattern   `json:"pattern_type"`
	DetectedAt      time.Time `json:"detected_at"`
}

// Involves reports whether sourceID is a member of the event
func (e CoordinationEvent) Involves(sourceID int64) bool {
	for _, id := range e.SourceIDs {
		if id == sourceID {
			return true
		}
	}
	return false
}

// SourceFrequency counts coordination events a source appears in
type SourceFrequency struct {
	SourceID   int64 `json:"source_id"`
	EventCount int   `json:"event_count"`
}

// CoordinationSummary aggregates all persisted coordination events
type CoordinationSummary struct {
	TotalEvents   int               `json:"total_events"`
	TotalClusters int               `json:"total_clusters"`
	Patterns      map[Pattern]int   `json:"patterns"`
	HighestScore  float64           `json:"highest_score"`
	MeanScore     float64           `json:"mean_score"`
	TopSources    []SourceFrequency `json:"top_sources"`
}
