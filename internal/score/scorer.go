package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/forensia/internal/model"
)

// Health component weights
const (
	WeightReliability   = 0.40
	WeightOrphan        = 0.25
	WeightFragmentation = 0.20
	WeightCoordination  = 0.15
)

// Clamp01 bounds x to [0,1]
func Clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// GradeFor maps a [0,1] score to a letter grade
func GradeFor(x float64) model.Grade {
	switch {
	case x >= 0.90:
		return model.GradeA
	case x >= 0.75:
		return model.GradeB
	case x >= 0.60:
		return model.GradeC
	case x >= 0.40:
		return model.GradeD
	default:
		return model.GradeF
	}
}

// HealthInputs carries the ecosystem figures the health score is built from.
// A nil section means the engine behind it produced nothing.
type HealthInputs struct {
	SourceCount  int
	Reputation   *model.ReputationSummary
	Network      *model.NetworkProfile
	Coordination *model.CoordinationSummary
	Provenance   *model.ProvenanceSummary
}

// Scorer calculates the ecosystem health score and its signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Health computes the weighted ecosystem health, clamped to [0,1], plus one
// transparent signal per component
func (s *Scorer) Health(in HealthInputs) (float64, []model.Signal) {
	relPart, relSignal := s.reliabilityComponent(in.Reputation)
	orphanPart, orphanSignal := s.orphanComponent(in.Provenance)
	netPart, netSignal := s.fragmentationComponent(in.Network, in.SourceCount)
	coordPart, coordSignal := s.coordinationComponent(in.Coordination)

	health := Clamp01(relPart + orphanPart + netPart + coordPart)
	return health, []model.Signal{relSignal, orphanSignal, netSignal, coordSignal}
}

// reliabilityComponent weighs mean source reliability (0-0.40)
func (s *Scorer) reliabilityComponent(rep *model.ReputationSummary) (float64, model.Signal) {
	if rep == nil {
		return 0.5 * WeightReliability, model.Signal{
			Type:        model.SignalMissingData,
			Severity:    model.SeverityWarning,
			Description: "Reputation section unavailable (assuming mean reliability 0.5)",
			Data: map[string]interface{}{
				"component": string(model.SignalReliability),
				"score":     0.5 * WeightReliability,
			},
		}
	}

	part := rep.MeanReliability * WeightReliability
	severity := model.SeverityInfo
	if rep.MeanReliability < 0.4 {
		severity = model.SeverityCritical
	} else if rep.MeanReliability < 0.6 {
		severity = model.SeverityWarning
	}

	return part, model.Signal{
		Type:        model.SignalReliability,
		Severity:    severity,
		Description: fmt.Sprintf("Mean source reliability: %.4f", rep.MeanReliability),
		Data: map[string]interface{}{
			"mean_reliability": rep.MeanReliability,
			"score":            part,
			"formula":          "mean_reliability * 0.40",
		},
	}
}

// orphanComponent rewards traced claims with a known origin (0-0.25)
func (s *Scorer) orphanComponent(prov *model.ProvenanceSummary) (float64, model.Signal) {
	if prov == nil || prov.TotalTraced == 0 {
		part := 0.5 * WeightOrphan
		return part, model.Signal{
			Type:        model.SignalOrphanRate,
			Severity:    model.SeverityInfo,
			Description: "No provenance traces yet (neutral contribution)",
			Data:        map[string]interface{}{"total_traced": 0, "score": part},
		}
	}

	rate := float64(prov.OrphanCount) / float64(prov.TotalTraced)
	part := (1 - rate) * WeightOrphan
	severity := model.SeverityInfo
	if rate > 0.5 {
		severity = model.SeverityCritical
	} else if rate > 0.2 {
		severity = model.SeverityWarning
	}

	return part, model.Signal{
		Type:        model.SignalOrphanRate,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d traced claims are orphans", prov.OrphanCount, prov.TotalTraced),
		Data: map[string]interface{}{
			"orphan_count": prov.OrphanCount,
			"total_traced": prov.TotalTraced,
			"orphan_rate":  rate,
			"score":        part,
			"formula":      "(1 - orphan_count / total_traced) * 0.25",
		},
	}
}

// fragmentationComponent rewards a connected influence network (0-0.20)
func (s *Scorer) fragmentationComponent(net *model.NetworkProfile, sourceCount int) (float64, model.Signal) {
	if sourceCount <= 0 {
		part := 0.5 * WeightFragmentation
		return part, model.Signal{
			Type:        model.SignalFragmentation,
			Severity:    model.SeverityInfo,
			Description: "No sources known (neutral contribution)",
			Data:        map[string]interface{}{"sources": 0, "score": part},
		}
	}

	components := 1
	if net != nil {
		components = net.Components
	}
	fragmentation := float64(components) / float64(sourceCount)
	part := (1 - fragmentation) * WeightFragmentation

	severity := model.SeverityInfo
	if fragmentation > 0.5 {
		severity = model.SeverityWarning
	}

	return part, model.Signal{
		Type:        model.SignalFragmentation,
		Severity:    severity,
		Description: fmt.Sprintf("%d components across %d sources", components, sourceCount),
		Data: map[string]interface{}{
			"components":    components,
			"sources":       sourceCount,
			"fragmentation": fragmentation,
			"score":         part,
			"formula":       "(1 - components / sources) * 0.20",
		},
	}
}

// coordinationComponent penalizes the strongest coordination cluster (0-0.15)
func (s *Scorer) coordinationComponent(coord *model.CoordinationSummary) (float64, model.Signal) {
	highest := 0.0
	if coord != nil {
		highest = coord.HighestScore
	}
	part := (1 - highest) * WeightCoordination

	severity := model.SeverityInfo
	if highest >= 0.8 {
		severity = model.SeverityCritical
	} else if highest >= 0.6 {
		severity = model.SeverityWarning
	}

	return part, model.Signal{
		Type:        model.SignalCoordination,
		Severity:    severity,
		Description: fmt.Sprintf("Highest coordination score: %.4f", highest),
		Data: map[string]interface{}{
			"highest_score": highest,
			"score":         part,
			"formula":       "(1 - highest_coordination_score) * 0.15",
		},
	}
}
