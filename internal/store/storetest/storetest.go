// Package storetest builds in-memory graph stores for tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store/sqlite"
)

// Base is the reference time fixtures are laid out from
var Base = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// New creates an in-memory SQLite store closed at test cleanup
func New(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(sqlite.MemoryPath, sqlite.Options{})
	require.NoError(t, err, "open in-memory store")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// Builder adds graph nodes with terse helpers
type Builder struct {
	t     *testing.T
	ctx   context.Context
	Store *sqlite.Repository
}

// NewBuilder wraps a fresh in-memory store
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t, ctx: context.Background(), Store: New(t)}
}

// Source adds a source with the given title and credibility
func (b *Builder) Source(title string, credibility float64) int64 {
	b.t.Helper()
	id, err := b.Store.AddSource(b.ctx, &model.Source{Title: title, Credibility: credibility})
	require.NoError(b.t, err)
	return id
}

// Claim adds a root claim
func (b *Builder) Claim(text string, confidence float64) int64 {
	b.t.Helper()
	id, err := b.Store.AddClaim(b.ctx, &model.Claim{Text: text, Confidence: confidence})
	require.NoError(b.t, err)
	return id
}

// Revision adds a claim whose mutation parent is parent
func (b *Builder) Revision(parent int64, text string, confidence float64) int64 {
	b.t.Helper()
	p := parent
	id, err := b.Store.AddClaim(b.ctx, &model.Claim{Text: text, Confidence: confidence, MutationParent: &p})
	require.NoError(b.t, err)
	return id
}

// Cite links source to claim at Base+offset
func (b *Builder) Cite(source, claim int64, rel model.Relationship, offset time.Duration) int64 {
	b.t.Helper()
	return b.Link(model.NodeSource, source, model.NodeClaim, claim, rel, model.FormatTimestamp(Base.Add(offset)))
}

// Link adds an arbitrary evidence link with a raw timestamp
func (b *Builder) Link(fromType model.NodeKind, from int64, toType model.NodeKind, to int64, rel model.Relationship, createdAt string) int64 {
	b.t.Helper()
	id, err := b.Store.AddLink(b.ctx, &model.EvidenceLink{
		FromType: fromType, FromID: from,
		ToType: toType, ToID: to,
		Relationship: rel,
		CreatedAt:    createdAt,
	})
	require.NoError(b.t, err)
	return id
}

// Clock returns a deterministic clock advancing one minute per call
func Clock() func() time.Time {
	now := Base.Add(24 * time.Hour)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}
