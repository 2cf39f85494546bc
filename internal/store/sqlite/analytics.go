package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

// InsertSnapshot appends a reputation snapshot
func (r *Repository) InsertSnapshot(ctx context.Context, s *model.ReputationSnapshot) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO source_reputation (source_id, support_count, contradict_count, total_claims,
			accuracy_rate, reliability, ema_credibility, trend, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SourceID, s.SupportCount, s.ContraCount, s.TotalClaims,
		s.Accuracy, s.Reliability, s.EMA, string(s.Trend), formatTime(s.ComputedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return s.ID, err
}

// Snapshots returns a source's snapshots, newest first. limit <= 0 returns all.
func (r *Repository) Snapshots(ctx context.Context, sourceID int64, limit int) ([]model.ReputationSnapshot, error) {
	query := `
		SELECT id, source_id, support_count, contradict_count, total_claims,
			accuracy_rate, reliability, ema_credibility, trend, computed_at
		FROM source_reputation
		WHERE source_id = ?
		ORDER BY computed_at DESC, id DESC`
	args := []interface{}{sourceID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.ReputationSnapshot
	for rows.Next() {
		var (
			s          model.ReputationSnapshot
			trend      string
			computedAt string
		)
		if err := rows.Scan(&s.ID, &s.SourceID, &s.SupportCount, &s.ContraCount, &s.TotalClaims,
			&s.Accuracy, &s.Reliability, &s.EMA, &trend, &computedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.Trend = model.Trend(trend)
		s.ComputedAt = parseTime(computedAt)
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// InsertInfluenceEdge appends an influence edge
func (r *Repository) InsertInfluenceEdge(ctx context.Context, e *model.InfluenceEdge) (int64, error) {
	if e.Relationship == "" {
		e.Relationship = model.RelAmplifies
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO influence_edges (run_id, from_source_id, to_source_id, shared_claims,
			amplification, relationship, first_seen, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stringToNull(e.RunID), e.FromSourceID, e.ToSourceID, e.SharedClaims,
		e.Amplification, e.Relationship, stringToNull(e.FirstSeen), stringToNull(e.LastSeen),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert influence edge: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return e.ID, err
}

// InfluenceEdges returns edges in insertion order
func (r *Repository) InfluenceEdges(ctx context.Context, f store.EdgeFilter) ([]model.InfluenceEdge, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.FromSourceID != 0 {
		where = append(where, "from_source_id = ?")
		args = append(args, f.FromSourceID)
	}
	if f.ToSourceID != 0 {
		where = append(where, "to_source_id = ?")
		args = append(args, f.ToSourceID)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}

	query := `
		SELECT id, run_id, from_source_id, to_source_id, shared_claims, amplification,
			relationship, first_seen, last_seen, created_at
		FROM influence_edges`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query influence edges: %w", err)
	}
	defer rows.Close()

	var edges []model.InfluenceEdge
	for rows.Next() {
		var (
			e                  model.InfluenceEdge
			runID, first, last sql.NullString
			createdAt          string
		)
		if err := rows.Scan(&e.ID, &runID, &e.FromSourceID, &e.ToSourceID, &e.SharedClaims,
			&e.Amplification, &e.Relationship, &first, &last, &createdAt); err != nil {
			return nil, fmt.Errorf("scan influence edge: %w", err)
		}
		e.RunID = nullToString(runID)
		e.FirstSeen = nullToString(first)
		e.LastSeen = nullToString(last)
		e.CreatedAt = parseTime(createdAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// InsertCoordinationEvent appends a coordination event
func (r *Repository) InsertCoordinationEvent(ctx context.Context, e *model.CoordinationEvent) (int64, error) {
	ids, err := json.Marshal(e.SourceIDs)
	if err != nil {
		return 0, fmt.Errorf("encode source ids: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO coordination_events (run_id, cluster_id, claim_id, source_ids_json, source_count,
			window_hours, temporal_density, coordination_score, pattern_type, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stringToNull(e.RunID), e.ClusterID, e.ClaimID, string(ids), e.SourceCount,
		e.WindowHours, e.TemporalDensity, e.Score, string(e.Pattern), formatTime(e.DetectedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert coordination event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return e.ID, err
}

// CoordinationEvents returns events matching f
func (r *Repository) CoordinationEvents(ctx context.Context, f store.EventFilter) ([]model.CoordinationEvent, error) {
	query := `
		SELECT id, run_id, cluster_id, claim_id, source_ids_json, source_count,
			window_hours, temporal_density, coordination_score, pattern_type, detected_at
		FROM coordination_events
		WHERE coordination_score >= ?`
	args := []interface{}{f.MinScore}
	if f.ByScore {
		query += " ORDER BY coordination_score DESC, id"
	} else {
		query += " ORDER BY id"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query coordination events: %w", err)
	}
	defer rows.Close()

	var events []model.CoordinationEvent
	for rows.Next() {
		var (
			e          model.CoordinationEvent
			runID      sql.NullString
			idsJSON    string
			pattern    string
			detectedAt string
		)
		if err := rows.Scan(&e.ID, &runID, &e.ClusterID, &e.ClaimID, &idsJSON, &e.SourceCount,
			&e.WindowHours, &e.TemporalDensity, &e.Score, &pattern, &detectedAt); err != nil {
			return nil, fmt.Errorf("scan coordination event: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &e.SourceIDs); err != nil {
			return nil, fmt.Errorf("decode source ids of event %d: %w", e.ID, err)
		}
		e.RunID = nullToString(runID)
		e.Pattern = model.Pattern(pattern)
		e.DetectedAt = parseTime(detectedAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertTrace appends a provenance trace
func (r *Repository) InsertTrace(ctx context.Context, t *model.ProvenanceTrace) (int64, error) {
	path, err := json.Marshal(t.Path)
	if err != nil {
		return 0, fmt.Errorf("encode path: %w", err)
	}
	origin := sql.NullInt64{Int64: t.OriginSourceID, Valid: t.OriginSourceID != 0}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO provenance_traces (claim_id, root_claim_id, origin_source_id, origin_source,
			origin_type, chain_depth, mutation_depth, source_depth, path_json, confidence, traced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ClaimID, t.RootClaimID, origin, stringToNull(t.OriginSource),
		string(t.OriginType), t.ChainDepth, t.MutationDepth, t.SourceDepth, string(path),
		t.Confidence, formatTime(t.TracedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trace: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return t.ID, err
}

// Traces returns traces newest first
func (r *Repository) Traces(ctx context.Context, f store.TraceFilter) ([]model.ProvenanceTrace, error) {
	query := `
		SELECT id, claim_id, root_claim_id, origin_source_id, origin_source, origin_type,
			chain_depth, mutation_depth, source_depth, path_json, confidence, traced_at
		FROM provenance_traces`
	var args []interface{}
	if f.ClaimID != 0 {
		query += " WHERE claim_id = ?"
		args = append(args, f.ClaimID)
	}
	query += " ORDER BY traced_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var traces []model.ProvenanceTrace
	for rows.Next() {
		var (
			t        model.ProvenanceTrace
			originID sql.NullInt64
			origin   sql.NullString
			kind     string
			pathJSON string
			tracedAt string
		)
		if err := rows.Scan(&t.ID, &t.ClaimID, &t.RootClaimID, &originID, &origin, &kind,
			&t.ChainDepth, &t.MutationDepth, &t.SourceDepth, &pathJSON, &t.Confidence, &tracedAt); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		if err := json.Unmarshal([]byte(pathJSON), &t.Path); err != nil {
			return nil, fmt.Errorf("decode path of trace %d: %w", t.ID, err)
		}
		t.OriginSourceID = originID.Int64
		t.OriginSource = nullToString(origin)
		t.OriginType = model.OriginType(kind)
		t.TracedAt = parseTime(tracedAt)
		traces = append(traces, t)
	}
	return traces, rows.Err()
}
