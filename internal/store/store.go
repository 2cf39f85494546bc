// Package store defines the contract between the analyzers and the graph store.
//
// The store holds claim nodes, source nodes and evidence links (written by
// external collectors) plus the analytic tables the engines append to. Every
// table is append-only from the engines' point of view.
package store

import (
	"context"
	"errors"

	"github.com/ppiankov/forensia/internal/model"
)

var (
	// ErrNotFound is returned when a claim or source id does not exist
	ErrNotFound = errors.New("not found")
)

// LinkOrder selects the ordering of Links results
type LinkOrder int

const (
	OrderByInsertion LinkOrder = iota // ascending link id
	OrderByCreatedAt                  // ascending created_at, then id
)

// NodeRef names one endpoint of an evidence link
type NodeRef struct {
	Kind model.NodeKind
	ID   int64
}

// LinkFilter is a conjunction of predicates over evidence links.
// Zero-valued fields do not filter.
type LinkFilter struct {
	FromType      model.NodeKind
	FromID        int64
	ToType        model.NodeKind
	ToID          int64
	Relationships []model.Relationship
	// Touching matches links where the node is either endpoint
	Touching *NodeRef
	// OtherKind restricts the far endpoint of a Touching match
	OtherKind model.NodeKind
	// ClaimSourceOnly matches links between a source and a claim, either direction
	ClaimSourceOnly bool
	Order           LinkOrder
	Limit           int
}

// EdgeFilter selects influence edges
type EdgeFilter struct {
	FromSourceID int64
	ToSourceID   int64
	RunID        string
}

// EventFilter selects coordination events
type EventFilter struct {
	MinScore float64
	Limit    int
	// ByScore orders by score descending instead of insertion order
	ByScore bool
}

// TraceFilter selects provenance traces, newest first
type TraceFilter struct {
	ClaimID int64
	Limit   int
}

// Stats counts rows per table
type Stats struct {
	Claims    int `json:"claims"`
	Sources   int `json:"sources"`
	Links     int `json:"links"`
	Snapshots int `json:"snapshots"`
	Edges     int `json:"influence_edges"`
	Events    int `json:"coordination_events"`
	Traces    int `json:"provenance_traces"`
}

// Revision returns a value that changes whenever any table grows
func (s Stats) Revision() int {
	return s.Claims + s.Sources + s.Links + s.Snapshots + s.Edges + s.Events + s.Traces
}

// Graph is the read/write surface over the evidence graph itself
type Graph interface {
	Claims(ctx context.Context) ([]model.Claim, error)
	Claim(ctx context.Context, id int64) (*model.Claim, error)
	Sources(ctx context.Context) ([]model.Source, error)
	Source(ctx context.Context, id int64) (*model.Source, error)
	Links(ctx context.Context, f LinkFilter) ([]model.EvidenceLink, error)

	AddClaim(ctx context.Context, c *model.Claim) (int64, error)
	AddSource(ctx context.Context, s *model.Source) (int64, error)
	AddLink(ctx context.Context, l *model.EvidenceLink) (int64, error)
}

// Analytics is the append-only surface for analyzer output
type Analytics interface {
	InsertSnapshot(ctx context.Context, s *model.ReputationSnapshot) (int64, error)
	Snapshots(ctx context.Context, sourceID int64, limit int) ([]model.ReputationSnapshot, error)

	InsertInfluenceEdge(ctx context.Context, e *model.InfluenceEdge) (int64, error)
	InfluenceEdges(ctx context.Context, f EdgeFilter) ([]model.InfluenceEdge, error)

	InsertCoordinationEvent(ctx context.Context, e *model.CoordinationEvent) (int64, error)
	CoordinationEvents(ctx context.Context, f EventFilter) ([]model.CoordinationEvent, error)

	InsertTrace(ctx context.Context, t *model.ProvenanceTrace) (int64, error)
	Traces(ctx context.Context, f TraceFilter) ([]model.ProvenanceTrace, error)
}

// Store is the full contract consumed by the engines
type Store interface {
	Graph
	Analytics
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
