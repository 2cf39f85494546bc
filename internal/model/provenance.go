package model

import "time"

// OriginType classifies where a claim's content came from
type OriginType string

const (
	OriginOriginal  OriginType = "original"
	OriginDerived   OriginType = "derived"
	OriginMutated   OriginType = "mutated"
	OriginAmplified OriginType = "amplified"
	OriginOrphan    OriginType = "orphan"
)

// Hop is one step of a provenance path
type Hop struct {
	Kind  NodeKind `json:"type"`
	ID    int64    `json:"id"`
	Label string   `json:"label,omitempty"` // Claim text excerpt or source title
}

// ProvenanceTrace is one backward trace of a claim
type ProvenanceTrace struct {
	ID             int64      `json:"id"`
	ClaimID        int64      `json:"claim_id"`
	RootClaimID    int64      `json:"root_claim_id"`
	OriginSourceID int64      `json:"origin_source_id,omitempty"`
	OriginSource   string     `json:"origin_source,omitempty"`
	OriginType     OriginType `json:"origin_type"`
	ChainDepth     int        `json:"chain_depth"`
	MutationDepth  int        `json:"mutation_depth"`
	SourceDepth    int        `json:"source_depth"`
	Path           []Hop      `json:"path"`
	Confidence     float64    `json:"confidence"`
	TracedAt       time.Time  `json:"traced_at"`
}

// ChainSummary identifies one of the deepest traced chains
type ChainSummary struct {
	ClaimID    int64      `json:"claim_id"`
	ChainDepth int        `json:"chain_depth"`
	OriginType OriginType `json:"origin_type"`
	Confidence float64    `json:"confidence"`
}

// ProvenanceSummary aggregates all persisted provenance traces
type ProvenanceSummary struct {
	TotalTraced   int                `json:"total_traced"`
	Origins       map[OriginType]int `json:"origin_distribution"`
	AvgChainDepth float64            `json:"avg_chain_depth"`
	MaxChainDepth int                `json:"max_chain_depth"`
	AvgConfidence float64            `json:"avg_confidence"`
	OrphanCount   int                `json:"orphan_count"`
	DeepestChains []ChainSummary     `json:"deepest_chains"`
}
