package model

import "time"

// RelAmplifies is the relationship recorded on every influence edge
const RelAmplifies = "amplifies"

// InfluenceEdge records that FromSourceID carried claims before ToSourceID did
type InfluenceEdge struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id,omitempty"`
	FromSourceID  int64     `json:"from_source_id"`
	ToSourceID    int64     `json:"to_source_id"`
	SharedClaims  int       `json:"shared_claims"`
	Amplification float64   `json:"amplification"`
	Relationship  string    `json:"relationship"`
	FirstSeen     string    `json:"first_seen"`
	LastSeen      string    `json:"last_seen"`
	CreatedAt     time.Time `json:"created_at"`
}

// Gateway is a source with high betweenness centrality
type Gateway struct {
	SourceID    int64   `json:"source_id"`
	Betweenness float64 `json:"betweenness"`
}

// Bottleneck is a source whose removal fragments the network
type Bottleneck struct {
	SourceID            int64   `json:"source_id"`
	Betweenness         float64 `json:"betweenness"`
	ComponentsIfRemoved int     `json:"components_if_removed"`
}

// Amplifier ranks a source by the summed amplification of its outgoing edges
type Amplifier struct {
	SourceID           int64   `json:"source_id"`
	Title              string  `json:"title"`
	AmplificationTotal float64 `json:"amplification_total"`
}

// CentralityScore is a PageRank value for one source
type CentralityScore struct {
	SourceID int64   `json:"source_id"`
	PageRank float64 `json:"pagerank"`
}

// NetworkProfile is the result of a whole-network analysis pass
type NetworkProfile struct {
	TotalSources  int               `json:"total_sources"`
	TotalEdges    int               `json:"total_edges"`
	Density       float64           `json:"density"`
	Components    int               `json:"components"`
	Gateways      []Gateway         `json:"gateways"`
	Bottlenecks   []Bottleneck      `json:"bottlenecks"`
	TopAmplifiers []Amplifier       `json:"top_amplifiers"`
	Centrality    []CentralityScore `json:"centrality"`
	Clusters      [][]int64         `json:"clusters"`
}
