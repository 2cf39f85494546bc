package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
	"github.com/ppiankov/forensia/internal/store/storetest"
)

const fixtureYAML = `
sources:
  - key: wire
    title: Origin wire
    type: url
    url: https://www.reuters.com/world/reservoir
  - key: blog
    title: Local blog
    credibility: 0.25
claims:
  - key: low
    text: reservoir levels fell below the summer threshold
    confidence: 0.8
    first_source: wire
  - key: low-v2
    text: reservoir levels fell far below the threshold
    parent: low
    diff: far below
links:
  - from: source:wire
    to: claim:low
    relationship: supports
    created_at: "2024-01-15T09:00:00Z"
  - from: source:blog
    to: claim:low-v2
    relationship: references
    created_at: "not a time"
  - from: source:blog
    to: source:wire
    relationship: derives_from
`

func TestLoad_YAMLFixture(t *testing.T) {
	repo := storetest.New(t)
	ctx := context.Background()

	doc, err := Decode(strings.NewReader(fixtureYAML), "yaml")
	require.NoError(t, err)

	sum, err := NewLoader(repo, testAuthority(), nil).Load(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sources)
	assert.Equal(t, 2, sum.Claims)
	assert.Equal(t, 3, sum.Links)

	wire, err := repo.Source(ctx, sum.IDs["source:wire"])
	require.NoError(t, err)
	assert.Equal(t, 0.7, wire.Credibility, "credibility from authority tier")
	assert.Equal(t, model.SourceTypeURL, wire.Type)

	blog, err := repo.Source(ctx, sum.IDs["source:blog"])
	require.NoError(t, err)
	assert.Equal(t, 0.25, blog.Credibility, "explicit credibility wins")

	v2, err := repo.Claim(ctx, sum.IDs["claim:low-v2"])
	require.NoError(t, err)
	require.True(t, v2.HasParent())
	assert.Equal(t, sum.IDs["claim:low"], *v2.MutationParent)
	assert.Equal(t, defaultClaimConfidence, v2.Confidence)

	links, err := repo.Links(ctx, store.LinkFilter{FromType: model.NodeSource, FromID: sum.IDs["source:blog"]})
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "not a time", links[0].CreatedAt, "raw timestamps kept")
}

func TestLoadFile_JSON(t *testing.T) {
	repo := storetest.New(t)
	path := filepath.Join(t.TempDir(), "graph.json")
	content := `{
  "sources": [{"key": "a", "title": "Paper", "url": "https://doi.org/10.1/x"}],
  "claims": [{"key": "c", "text": "the dam was inspected", "confidence": 0.6}],
  "links": [{"from": "source:a", "to": "claim:c", "relationship": "supports"}]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sum, err := NewLoader(repo, nil, nil).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Links)

	src, err := repo.Source(context.Background(), sum.IDs["source:a"])
	require.NoError(t, err)
	assert.Equal(t, 0.9, src.Credibility)
}

func TestDecode_UnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("sources:\n  - key: a\n    titel: typo\n"), "yaml")
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"claims": [], "edges": []}`), "json")
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(""), "toml")
	assert.Error(t, err)

	doc, err := Decode(strings.NewReader(""), "yaml")
	require.NoError(t, err)
	assert.Empty(t, doc.Sources)
}

func TestValidate(t *testing.T) {
	bad := 1.5

	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "duplicate source key",
			doc:  Document{Sources: []SourceEntry{{Key: "a", Title: "A"}, {Key: "a", Title: "B"}}},
			want: `source "a": duplicate key`,
		},
		{
			name: "credibility out of range",
			doc:  Document{Sources: []SourceEntry{{Key: "a", Title: "A", Credibility: &bad}}},
			want: "outside [0,1]",
		},
		{
			name: "parent after child",
			doc: Document{Claims: []ClaimEntry{
				{Key: "child", Text: "x", Parent: "root"},
				{Key: "root", Text: "y"},
			}},
			want: `parent "root" must be an earlier claim`,
		},
		{
			name: "self parent",
			doc:  Document{Claims: []ClaimEntry{{Key: "c", Text: "x", Parent: "c"}}},
			want: "must be an earlier claim",
		},
		{
			name: "unknown claim type",
			doc:  Document{Claims: []ClaimEntry{{Key: "c", Text: "x", Type: "rumour"}}},
			want: "unknown type",
		},
		{
			name: "bad endpoint",
			doc: Document{
				Claims: []ClaimEntry{{Key: "c", Text: "x"}},
				Links:  []LinkEntry{{From: "person:bob", To: "claim:c", Relationship: model.RelSupports}},
			},
			want: "must be source:<key> or claim:<key>",
		},
		{
			name: "unknown relationship",
			doc: Document{
				Sources: []SourceEntry{{Key: "s", Title: "S"}},
				Claims:  []ClaimEntry{{Key: "c", Text: "x"}},
				Links:   []LinkEntry{{From: "source:s", To: "claim:c", Relationship: "endorses"}},
			},
			want: "unknown relationship",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.doc)
			require.ErrorIs(t, err, ErrInvalidDocument)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidWritesNothing(t *testing.T) {
	repo := storetest.New(t)
	ctx := context.Background()

	doc := &Document{
		Sources: []SourceEntry{{Key: "s", Title: "S"}},
		Links:   []LinkEntry{{From: "source:s", To: "claim:missing", Relationship: model.RelSupports}},
	}
	_, err := NewLoader(repo, nil, nil).Load(ctx, doc)
	require.ErrorIs(t, err, ErrInvalidDocument)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sources)
}
