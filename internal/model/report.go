package model

import "time"

// SourceReport is the forensic report for a single source
type SourceReport struct {
	SourceID    int64     `json:"source_id"`
	Title       string    `json:"title"`
	SourceType  string    `json:"source_type"`
	Platform    string    `json:"platform"`
	Author      string    `json:"author"`
	GeneratedAt time.Time `json:"generated_at"`

	// Sections are nil when the engine behind them failed
	Reputation   *ReputationProfile   `json:"reputation,omitempty"`
	Influence    *InfluenceSection    `json:"influence,omitempty"`
	Coordination *CoordinationSection `json:"coordination,omitempty"`
	Provenance   *ProvenanceSection   `json:"provenance,omitempty"`
}

// Neighbor is one influence edge seen from a single source
type Neighbor struct {
	SourceID int64 `json:"id"`
	Shared   int   `json:"shared"`
}

// InfluenceSection summarizes a source's influence edges
type InfluenceSection struct {
	Outgoing           int        `json:"outgoing"`
	Incoming           int        `json:"incoming"`
	TotalAmplification float64    `json:"total_amplification"`
	Influences         []Neighbor `json:"influences"`
	InfluencedBy       []Neighbor `json:"influenced_by"`
}

// CoordinationSection lists the coordination events a source took part in
type CoordinationSection struct {
	EventCount int       `json:"event_count"`
	Patterns   []Pattern `json:"patterns"`
}

// ProvenanceSection counts a source's direct claim links
type ProvenanceSection struct {
	Originated int `json:"originated"` // supports links from the source
	Referenced int `json:"referenced"` // links in either direction
}

// RankedSource is a source entry in the top/bottom tables
type RankedSource struct {
	SourceID         int64   `json:"source_id"`
	Title            string  `json:"title"`
	ReliabilityIndex float64 `json:"reliability_index"`
	Grade            Grade   `json:"grade"`
}

// ReputationSummary describes the reliability distribution of the ecosystem
type ReputationSummary struct {
	GradeDistribution map[Grade]int `json:"grade_distribution"`
	MeanReliability   float64       `json:"mean_reliability"`
	MedianReliability float64       `json:"median_reliability"`
}

// EcosystemReport is the ecosystem-wide forensic report
type EcosystemReport struct {
	SourceCount int       `json:"source_count"`
	GeneratedAt time.Time `json:"generated_at"`

	Reputation    *ReputationSummary   `json:"reputation_summary,omitempty"`
	TopSources    []RankedSource       `json:"top_sources"`
	BottomSources []RankedSource       `json:"bottom_sources"`
	Network       *NetworkProfile      `json:"network,omitempty"`
	Coordination  *CoordinationSummary `json:"coordination,omitempty"`
	Provenance    *ProvenanceSummary   `json:"provenance,omitempty"`

	Health  float64  `json:"ecosystem_health"`
	Grade   Grade    `json:"ecosystem_grade"`
	Signals []Signal `json:"signals"` // Health breakdown with formulas

	LLM *LLMSummary `json:"llm,omitempty"` // Optional, never affects health
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalReliability   SignalType = "reliability"
	SignalOrphanRate    SignalType = "orphan_rate"
	SignalFragmentation SignalType = "fragmentation"
	SignalCoordination  SignalType = "coordination"
	SignalMissingData   SignalType = "missing_section"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains an optional LLM-generated narrative
type LLMSummary struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"`
	Model          string   `json:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence"`
	SummaryMD      string   `json:"summary_md,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}
