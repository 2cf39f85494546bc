package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/forensia/internal/model"
)

const (
	ruleWidth    = 70
	sectionWidth = 40
)

var gradeOrder = []model.Grade{model.GradeA, model.GradeB, model.GradeC, model.GradeD, model.GradeF}

type narrative struct {
	b strings.Builder
}

func (n *narrative) line(format string, args ...interface{}) {
	fmt.Fprintf(&n.b, format, args...)
	n.b.WriteByte('\n')
}

func (n *narrative) header(title string) {
	n.line("%s", strings.Repeat("=", ruleWidth))
	n.line("SOURCE FORENSICS REPORT – %s", title)
	n.line("%s", strings.Repeat("=", ruleWidth))
}

func (n *narrative) section(num int, title string) {
	n.line("")
	n.line("%d. %s", num, title)
	n.line("%s", strings.Repeat("-", sectionWidth))
}

func (n *narrative) footer(at time.Time) {
	n.line("")
	n.line("%s", strings.Repeat("=", ruleWidth))
	n.line("Generated: %s", at.Format(time.RFC3339))
	n.line("%s", strings.Repeat("=", ruleWidth))
}

// RenderSource formats a single-source report as plain text
func RenderSource(rep *model.SourceReport) string {
	var n narrative
	n.header(fmt.Sprintf("Source #%d", rep.SourceID))

	n.section(1, "SOURCE IDENTITY")
	n.line("  Title:    %s", rep.Title)
	n.line("  Type:     %s", rep.SourceType)
	if rep.Platform != "" {
		n.line("  Platform: %s", rep.Platform)
	}
	if rep.Author != "" {
		n.line("  Author:   %s", rep.Author)
	}

	n.section(2, "REPUTATION PROFILE")
	if p := rep.Reputation; p != nil {
		n.line("  Grade:              %s", p.Grade)
		n.line("  Reliability index:  %.4f", p.ReliabilityIndex)
		n.line("  Current EMA:        %.4f", p.CurrentEMA)
		n.line("  Accuracy:           %.4f", p.Accuracy)
		n.line("  Support/contradict: %d/%d (ratio %.4f)", p.SupportCount, p.ContraCount, p.SupportRatio)
		n.line("  Trend:              %s (%+.4f)", p.Trend, p.TrendDelta)
		n.line("  Snapshots:          %d", p.SnapshotCount)
	} else {
		n.line("  unavailable")
	}

	n.section(3, "INFLUENCE ANALYSIS")
	if inf := rep.Influence; inf != nil {
		n.line("  Influences:          %d sources", inf.Outgoing)
		n.line("  Influenced by:       %d sources", inf.Incoming)
		n.line("  Total amplification: %.4f", inf.TotalAmplification)
		for i, nb := range inf.Influences {
			if i >= 5 {
				break
			}
			n.line("    -> Source #%d (shared: %d)", nb.SourceID, nb.Shared)
		}
		for i, nb := range inf.InfluencedBy {
			if i >= 5 {
				break
			}
			n.line("    <- Source #%d (shared: %d)", nb.SourceID, nb.Shared)
		}
	} else {
		n.line("  unavailable")
	}

	n.section(4, "COORDINATION FLAGS")
	if c := rep.Coordination; c != nil {
		if c.EventCount == 0 {
			n.line("  No coordination events detected")
		} else {
			patterns := make([]string, len(c.Patterns))
			for i, p := range c.Patterns {
				patterns[i] = string(p)
			}
			n.line("  Events:   %d", c.EventCount)
			n.line("  Patterns: %s", strings.Join(patterns, ", "))
		}
	} else {
		n.line("  unavailable")
	}

	n.section(5, "PROVENANCE")
	if p := rep.Provenance; p != nil {
		n.line("  Claims originated: %d", p.Originated)
		n.line("  Claims referenced: %d", p.Referenced)
	} else {
		n.line("  unavailable")
	}

	n.footer(rep.GeneratedAt)
	return n.b.String()
}

// RenderEcosystem formats the ecosystem report as plain text
func RenderEcosystem(rep *model.EcosystemReport) string {
	var n narrative
	n.header("ECOSYSTEM ANALYSIS")

	n.section(1, "ECOSYSTEM OVERVIEW")
	n.line("  Sources:          %d", rep.SourceCount)
	n.line("  Ecosystem health: %.1f%% (grade %s)", rep.Health*100, rep.Grade)
	for _, s := range rep.Signals {
		n.line("  [%s] %s", s.Severity, s.Description)
	}

	n.section(2, "REPUTATION DISTRIBUTION")
	if r := rep.Reputation; r != nil {
		for _, g := range gradeOrder {
			if count := r.GradeDistribution[g]; count > 0 {
				n.line("  %s: %d", g, count)
			}
		}
		n.line("  Mean reliability:   %.4f", r.MeanReliability)
		n.line("  Median reliability: %.4f", r.MedianReliability)
	} else {
		n.line("  unavailable")
	}

	n.section(3, "TOP RELIABLE SOURCES")
	rankedLines(&n, rep.TopSources)

	n.section(4, "LOWEST RELIABILITY SOURCES")
	rankedLines(&n, rep.BottomSources)

	n.section(5, "INFLUENCE NETWORK")
	if net := rep.Network; net != nil {
		n.line("  Nodes: %d  Edges: %d  Density: %.4f  Components: %d",
			net.TotalSources, net.TotalEdges, net.Density, net.Components)
		for i, g := range net.Gateways {
			if i >= 3 {
				break
			}
			n.line("  Gateway:    Source #%d (betweenness=%.4f)", g.SourceID, g.Betweenness)
		}
		for i, b := range net.Bottlenecks {
			if i >= 3 {
				break
			}
			n.line("  Bottleneck: Source #%d (components if removed=%d)", b.SourceID, b.ComponentsIfRemoved)
		}
	} else {
		n.line("  unavailable")
	}

	n.section(6, "COORDINATION ANALYSIS")
	if c := rep.Coordination; c != nil {
		n.line("  Events:        %d", c.TotalEvents)
		n.line("  Highest score: %.4f", c.HighestScore)
		n.line("  Mean score:    %.4f", c.MeanScore)
		for _, p := range sortedKeys(c.Patterns) {
			n.line("  %s: %d", p, c.Patterns[model.Pattern(p)])
		}
	} else {
		n.line("  unavailable")
	}

	n.section(7, "PROVENANCE ANALYSIS")
	if p := rep.Provenance; p != nil {
		n.line("  Claims traced:   %d", p.TotalTraced)
		n.line("  Orphans:         %d", p.OrphanCount)
		n.line("  Avg chain depth: %.2f (max %d)", p.AvgChainDepth, p.MaxChainDepth)
		n.line("  Avg confidence:  %.4f", p.AvgConfidence)
		for _, o := range sortedKeys(p.Origins) {
			n.line("  %s: %d", o, p.Origins[model.OriginType(o)])
		}
	} else {
		n.line("  unavailable")
	}

	if rep.LLM != nil && rep.LLM.SummaryMD != "" {
		n.section(8, "NARRATIVE SUMMARY")
		n.line("%s", strings.TrimSpace(rep.LLM.SummaryMD))
	}

	n.footer(rep.GeneratedAt)
	return n.b.String()
}

func rankedLines(n *narrative, sources []model.RankedSource) {
	if len(sources) == 0 {
		n.line("  none")
		return
	}
	for i, s := range sources {
		n.line("  %d. [%s] %s (idx=%.4f)", i+1, s.Grade, s.Title, s.ReliabilityIndex)
	}
}

// sortedKeys returns the string keys of a pattern or origin histogram in order
func sortedKeys[K ~string](m map[K]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
