package score

import (
	"math"
	"testing"

	"github.com/ppiankov/forensia/internal/model"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Grade
	}{
		{1.0, model.GradeA},
		{0.90, model.GradeA},
		{0.8999, model.GradeB},
		{0.75, model.GradeB},
		{0.60, model.GradeC},
		{0.40, model.GradeD},
		{0.3999, model.GradeF},
		{0, model.GradeF},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScorer_Health_AllSectionsMissing(t *testing.T) {
	scorer := NewScorer()

	health, signals := scorer.Health(HealthInputs{})

	// 0.5*0.40 + 0.125 + 0.10 + 0.15
	want := 0.2 + 0.125 + 0.10 + 0.15
	if math.Abs(health-want) > 1e-12 {
		t.Errorf("Expected neutral health %.4f, got %.4f", want, health)
	}
	if len(signals) != 4 {
		t.Fatalf("Expected 4 signals, got %d", len(signals))
	}
	if signals[0].Type != model.SignalMissingData {
		t.Errorf("Expected missing reputation signal, got %s", signals[0].Type)
	}
}

func TestScorer_Health_Components(t *testing.T) {
	scorer := NewScorer()

	health, signals := scorer.Health(HealthInputs{
		SourceCount:  4,
		Reputation:   &model.ReputationSummary{MeanReliability: 0.8},
		Network:      &model.NetworkProfile{Components: 2},
		Coordination: &model.CoordinationSummary{HighestScore: 0.6},
		Provenance:   &model.ProvenanceSummary{TotalTraced: 10, OrphanCount: 2},
	})

	want := 0.8*0.40 + 0.8*0.25 + 0.5*0.20 + 0.4*0.15
	if math.Abs(health-want) > 1e-12 {
		t.Errorf("Expected health %.4f, got %.4f", want, health)
	}

	for _, s := range signals {
		if s.Type == model.SignalCoordination && s.Severity != model.SeverityWarning {
			t.Errorf("Expected warning severity for coordination 0.6, got %s", s.Severity)
		}
		if _, ok := s.Data["formula"]; !ok {
			t.Errorf("Signal %s should carry its formula", s.Type)
		}
	}
}

func TestScorer_Health_AlwaysBounded(t *testing.T) {
	scorer := NewScorer()

	extremes := []HealthInputs{
		{SourceCount: 1, Reputation: &model.ReputationSummary{MeanReliability: 5}, Network: &model.NetworkProfile{Components: 0}},
		{SourceCount: 1, Reputation: &model.ReputationSummary{MeanReliability: -3}, Network: &model.NetworkProfile{Components: 40},
			Coordination: &model.CoordinationSummary{HighestScore: 9}},
		{SourceCount: 0, Provenance: &model.ProvenanceSummary{TotalTraced: 3, OrphanCount: 3}},
	}

	for i, in := range extremes {
		health, _ := scorer.Health(in)
		if health < 0 || health > 1 {
			t.Errorf("case %d: health %v out of [0,1]", i, health)
		}
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.1) != 0 || Clamp01(1.2) != 1 || Clamp01(0.3) != 0.3 {
		t.Errorf("Clamp01 did not bound its input")
	}
}
