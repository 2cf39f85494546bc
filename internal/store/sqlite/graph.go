package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

const claimColumns = `id, claim_text, claim_type, first_source, confidence, verification,
	mutation_parent, mutation_diff, tags, created_at`

const sourceColumns = `id, source_type, source_title, source_url, document_cid, author,
	published_at, credibility, platform, created_at`

const linkColumns = `id, from_type, from_id, to_type, to_id, relationship, weight, created_at`

// claimRow scans a claim_nodes row
type claimRow struct {
	id             int64
	text           string
	claimType      string
	firstSource    sql.NullInt64
	confidence     float64
	verification   string
	mutationParent sql.NullInt64
	mutationDiff   sql.NullString
	tags           sql.NullString
	createdAt      string
}

func (r *claimRow) scanArgs() []interface{} {
	return []interface{}{
		&r.id, &r.text, &r.claimType, &r.firstSource, &r.confidence, &r.verification,
		&r.mutationParent, &r.mutationDiff, &r.tags, &r.createdAt,
	}
}

func (r *claimRow) toDomain() (model.Claim, error) {
	c := model.Claim{
		ID:             r.id,
		Text:           r.text,
		Type:           model.ClaimType(r.claimType),
		FirstSource:    nullToID(r.firstSource),
		Confidence:     r.confidence,
		Verification:   r.verification,
		MutationParent: nullToID(r.mutationParent),
		MutationDiff:   nullToString(r.mutationDiff),
		CreatedAt:      r.createdAt,
	}
	if err := unmarshalJSONField(r.tags, &c.Tags); err != nil {
		return model.Claim{}, fmt.Errorf("decode tags of claim %d: %w", r.id, err)
	}
	return c, nil
}

// sourceRow scans a source_nodes row
type sourceRow struct {
	id          int64
	sourceType  string
	title       string
	url         sql.NullString
	documentCID sql.NullString
	author      sql.NullString
	publishedAt sql.NullString
	credibility float64
	platform    sql.NullString
	createdAt   string
}

func (r *sourceRow) scanArgs() []interface{} {
	return []interface{}{
		&r.id, &r.sourceType, &r.title, &r.url, &r.documentCID, &r.author,
		&r.publishedAt, &r.credibility, &r.platform, &r.createdAt,
	}
}

func (r *sourceRow) toDomain() model.Source {
	return model.Source{
		ID:          r.id,
		Title:       r.title,
		Type:        model.SourceType(r.sourceType),
		URL:         nullToString(r.url),
		DocumentCID: nullToString(r.documentCID),
		Author:      nullToString(r.author),
		PublishedAt: nullToString(r.publishedAt),
		Credibility: r.credibility,
		Platform:    nullToString(r.platform),
		CreatedAt:   r.createdAt,
	}
}

// Claims returns every claim in insertion order
func (r *Repository) Claims(ctx context.Context) ([]model.Claim, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+claimColumns+` FROM claim_nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var row claimRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// Claim returns one claim or store.ErrNotFound
func (r *Repository) Claim(ctx context.Context, id int64) (*model.Claim, error) {
	var row claimRow
	err := r.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claim_nodes WHERE id = ?`, id).
		Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query claim %d: %w", id, err)
	}
	c, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Sources returns every source in insertion order
func (r *Repository) Sources(ctx context.Context) ([]model.Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM source_nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var row sourceRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, row.toDomain())
	}
	return sources, rows.Err()
}

// Source returns one source or store.ErrNotFound
func (r *Repository) Source(ctx context.Context, id int64) (*model.Source, error) {
	var row sourceRow
	err := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM source_nodes WHERE id = ?`, id).
		Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query source %d: %w", id, err)
	}
	s := row.toDomain()
	return &s, nil
}

// Links returns the evidence links matching every predicate of f
func (r *Repository) Links(ctx context.Context, f store.LinkFilter) ([]model.EvidenceLink, error) {
	query, args := buildLinkQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var links []model.EvidenceLink
	for rows.Next() {
		var (
			l         model.EvidenceLink
			fromType  string
			toType    string
			rel       string
			createdAt sql.NullString
		)
		if err := rows.Scan(&l.ID, &fromType, &l.FromID, &toType, &l.ToID, &rel, &l.Weight, &createdAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		l.FromType = model.NodeKind(fromType)
		l.ToType = model.NodeKind(toType)
		l.Relationship = model.Relationship(rel)
		l.CreatedAt = nullToString(createdAt)
		links = append(links, l)
	}
	return links, rows.Err()
}

func buildLinkQuery(f store.LinkFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if f.FromType != "" {
		where = append(where, "from_type = ?")
		args = append(args, string(f.FromType))
	}
	if f.FromID != 0 {
		where = append(where, "from_id = ?")
		args = append(args, f.FromID)
	}
	if f.ToType != "" {
		where = append(where, "to_type = ?")
		args = append(args, string(f.ToType))
	}
	if f.ToID != 0 {
		where = append(where, "to_id = ?")
		args = append(args, f.ToID)
	}
	if len(f.Relationships) > 0 {
		marks := make([]string, len(f.Relationships))
		for i, rel := range f.Relationships {
			marks[i] = "?"
			args = append(args, string(rel))
		}
		where = append(where, "relationship IN ("+strings.Join(marks, ", ")+")")
	}
	if f.Touching != nil {
		kind, id := string(f.Touching.Kind), f.Touching.ID
		if f.OtherKind != "" {
			other := string(f.OtherKind)
			where = append(where, "((from_type = ? AND from_id = ? AND to_type = ?) OR (to_type = ? AND to_id = ? AND from_type = ?))")
			args = append(args, kind, id, other, kind, id, other)
		} else {
			where = append(where, "((from_type = ? AND from_id = ?) OR (to_type = ? AND to_id = ?))")
			args = append(args, kind, id, kind, id)
		}
	}
	if f.ClaimSourceOnly {
		where = append(where, "((from_type = 'source' AND to_type = 'claim') OR (from_type = 'claim' AND to_type = 'source'))")
	}

	query := `SELECT ` + linkColumns + ` FROM evidence_links`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch f.Order {
	case store.OrderByCreatedAt:
		query += " ORDER BY created_at, id"
	default:
		query += " ORDER BY id"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return query, args
}

// AddClaim inserts a claim and sets its id
func (r *Repository) AddClaim(ctx context.Context, c *model.Claim) (int64, error) {
	if c.CreatedAt == "" {
		c.CreatedAt = formatTime(r.now())
	}
	if c.Type == "" {
		c.Type = model.ClaimTypeAssertion
	}
	if c.Verification == "" {
		c.Verification = "unverified"
	}
	tags, err := marshalToNull(c.Tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO claim_nodes (claim_text, claim_type, first_source, confidence, verification,
			mutation_parent, mutation_diff, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Text, string(c.Type), idToNull(c.FirstSource), c.Confidence, c.Verification,
		idToNull(c.MutationParent), stringToNull(c.MutationDiff), tags, c.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert claim: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return c.ID, err
}

// AddSource inserts a source and sets its id
func (r *Repository) AddSource(ctx context.Context, s *model.Source) (int64, error) {
	if s.CreatedAt == "" {
		s.CreatedAt = formatTime(r.now())
	}
	if s.Type == "" {
		s.Type = model.SourceTypeDocument
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO source_nodes (source_type, source_title, source_url, document_cid, author,
			published_at, credibility, platform, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(s.Type), s.Title, stringToNull(s.URL), stringToNull(s.DocumentCID), stringToNull(s.Author),
		stringToNull(s.PublishedAt), s.Credibility, stringToNull(s.Platform), s.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return s.ID, err
}

// AddLink inserts an evidence link and sets its id.
// An empty CreatedAt is stamped with the current time.
func (r *Repository) AddLink(ctx context.Context, l *model.EvidenceLink) (int64, error) {
	if l.CreatedAt == "" {
		l.CreatedAt = formatTime(r.now())
	}
	if l.Weight == 0 {
		l.Weight = 1.0
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO evidence_links (from_type, from_id, to_type, to_id, relationship, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(l.FromType), l.FromID, string(l.ToType), l.ToID, string(l.Relationship), l.Weight, l.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert link: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return l.ID, err
}
