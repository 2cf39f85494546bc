package model

import "time"

// Trend is the direction of a source's reliability over recent snapshots
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendFlat      Trend = "flat"
)

// Grade is an A-F letter grade for a [0,1] score
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ReputationSnapshot is one point-in-time credibility computation for a source
type ReputationSnapshot struct {
	ID           int64     `json:"id"`
	SourceID     int64     `json:"source_id"`
	SupportCount int       `json:"support_count"`
	ContraCount  int       `json:"contradict_count"`
	TotalClaims  int       `json:"total_claims"`
	Accuracy     float64   `json:"accuracy_rate"`
	Reliability  float64   `json:"reliability"` // Laplace-smoothed support ratio
	EMA          float64   `json:"ema_credibility"`
	Trend        Trend     `json:"trend"`
	ComputedAt   time.Time `json:"computed_at"`
}

// ReputationProfile aggregates the full snapshot history of a source
type ReputationProfile struct {
	SourceID           int64   `json:"source_id"`
	SourceTitle        string  `json:"source_title"`
	SourceType         string  `json:"source_type"`
	SnapshotCount      int     `json:"snapshot_count"`
	CurrentReliability float64 `json:"current_reliability"`
	CurrentEMA         float64 `json:"current_ema"`
	Accuracy           float64 `json:"accuracy_rate"`
	SupportRatio       float64 `json:"support_ratio"`
	SupportCount       int     `json:"support_count"`
	ContraCount        int     `json:"contradict_count"`
	TotalClaims        int     `json:"total_claims"`
	MeanReliability    float64 `json:"mean_reliability"`
	StdReliability     float64 `json:"std_reliability"`
	Trend              Trend   `json:"trend_direction"`
	TrendDelta         float64 `json:"trend_delta"`
	ReliabilityIndex   float64 `json:"reliability_index"`
	Grade              Grade   `json:"grade"`
}
