// Package ingest loads evidence-graph fixtures (sources, claims and links)
// from YAML or JSON documents into the graph store.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

var (
	// ErrInvalidDocument is returned when a fixture fails validation
	ErrInvalidDocument = errors.New("invalid ingest document")
)

// Document is one fixture file. Entries reference each other by key.
type Document struct {
	Sources []SourceEntry `yaml:"sources" json:"sources"`
	Claims  []ClaimEntry  `yaml:"claims" json:"claims"`
	Links   []LinkEntry   `yaml:"links" json:"links"`
}

// SourceEntry describes a source node. A missing credibility is derived
// from the URL's authority tier.
type SourceEntry struct {
	Key         string           `yaml:"key" json:"key"`
	Title       string           `yaml:"title" json:"title"`
	Type        model.SourceType `yaml:"type" json:"type"`
	URL         string           `yaml:"url" json:"url"`
	DocumentCID string           `yaml:"document_cid" json:"document_cid"`
	Author      string           `yaml:"author" json:"author"`
	PublishedAt string           `yaml:"published_at" json:"published_at"`
	Platform    string           `yaml:"platform" json:"platform"`
	Credibility *float64         `yaml:"credibility" json:"credibility"`
	CreatedAt   string           `yaml:"created_at" json:"created_at"`
}

// ClaimEntry describes a claim node; Parent names an earlier claim it revises
type ClaimEntry struct {
	Key          string          `yaml:"key" json:"key"`
	Text         string          `yaml:"text" json:"text"`
	Type         model.ClaimType `yaml:"type" json:"type"`
	Confidence   *float64        `yaml:"confidence" json:"confidence"`
	Verification string          `yaml:"verification" json:"verification"`
	Parent       string          `yaml:"parent" json:"parent"`
	Diff         string          `yaml:"diff" json:"diff"`
	FirstSource  string          `yaml:"first_source" json:"first_source"`
	Tags         []string        `yaml:"tags" json:"tags"`
	CreatedAt    string          `yaml:"created_at" json:"created_at"`
}

// LinkEntry describes an evidence link. From and To are "source:<key>" or
// "claim:<key>". CreatedAt is stored verbatim, malformed values included.
type LinkEntry struct {
	From         string             `yaml:"from" json:"from"`
	To           string             `yaml:"to" json:"to"`
	Relationship model.Relationship `yaml:"relationship" json:"relationship"`
	Weight       float64            `yaml:"weight" json:"weight"`
	CreatedAt    string             `yaml:"created_at" json:"created_at"`
}

// Summary counts the rows an ingest wrote
type Summary struct {
	Sources int              `json:"sources"`
	Claims  int              `json:"claims"`
	Links   int              `json:"links"`
	IDs     map[string]int64 `json:"ids"` // "source:<key>" / "claim:<key>" to store id
}

const defaultClaimConfidence = 0.5

var knownRelationships = map[model.Relationship]bool{
	model.RelSupports:    true,
	model.RelReferences:  true,
	model.RelDerivesFrom: true,
	model.RelContradicts: true,
	model.RelSupersedes:  true,
	model.RelRelated:     true,
}

// Loader writes fixture documents into the graph
type Loader struct {
	graph     store.Graph
	authority *AuthorityClassifier
	logger    *slog.Logger
}

// NewLoader creates a loader; a nil classifier uses the default authority config
func NewLoader(g store.Graph, authority *AuthorityClassifier, logger *slog.Logger) *Loader {
	if authority == nil {
		authority = NewAuthorityClassifier(model.DefaultConfig().Authority)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{graph: g, authority: authority, logger: logger}
}

// Decode parses a document; format is "json" or "yaml"
func Decode(r io.Reader, format string) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc Document
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &doc, nil
}

// LoadFile decodes path (format from its extension) and loads it
func (l *Loader) LoadFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Decode(f, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l.Load(ctx, doc)
}

// LoadURL fetches a remote document and loads it
func (l *Loader) LoadURL(ctx context.Context, f *Fetcher, rawURL string) (*Summary, error) {
	doc, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, doc)
}

// IsRemote reports whether a fixture argument is an http(s) URL
func IsRemote(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// Load validates the whole document, then writes sources, claims and links
// in document order. Nothing is written when validation fails.
func (l *Loader) Load(ctx context.Context, doc *Document) (*Summary, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	sum := &Summary{IDs: make(map[string]int64)}

	for _, e := range doc.Sources {
		src := &model.Source{
			Title:       e.Title,
			Type:        e.Type,
			URL:         e.URL,
			DocumentCID: e.DocumentCID,
			Author:      e.Author,
			PublishedAt: e.PublishedAt,
			Platform:    e.Platform,
			CreatedAt:   e.CreatedAt,
		}
		if e.Credibility != nil {
			src.Credibility = *e.Credibility
		} else {
			src.Credibility = l.authority.Prior(e.URL)
		}
		id, err := l.graph.AddSource(ctx, src)
		if err != nil {
			return sum, fmt.Errorf("add source %q: %w", e.Key, err)
		}
		sum.IDs[ref(model.NodeSource, e.Key)] = id
		sum.Sources++
	}

	for _, e := range doc.Claims {
		claim := &model.Claim{
			Text:         e.Text,
			Type:         e.Type,
			Confidence:   defaultClaimConfidence,
			Verification: e.Verification,
			MutationDiff: e.Diff,
			Tags:         e.Tags,
			CreatedAt:    e.CreatedAt,
		}
		if e.Confidence != nil {
			claim.Confidence = *e.Confidence
		}
		if e.Parent != "" {
			parent := sum.IDs[ref(model.NodeClaim, e.Parent)]
			claim.MutationParent = &parent
		}
		if e.FirstSource != "" {
			first := sum.IDs[ref(model.NodeSource, e.FirstSource)]
			claim.FirstSource = &first
		}
		id, err := l.graph.AddClaim(ctx, claim)
		if err != nil {
			return sum, fmt.Errorf("add claim %q: %w", e.Key, err)
		}
		sum.IDs[ref(model.NodeClaim, e.Key)] = id
		sum.Claims++
	}

	for i, e := range doc.Links {
		fromKind, _, _ := parseRef(e.From)
		toKind, _, _ := parseRef(e.To)
		link := &model.EvidenceLink{
			FromType:     fromKind,
			FromID:       sum.IDs[e.From],
			ToType:       toKind,
			ToID:         sum.IDs[e.To],
			Relationship: e.Relationship,
			Weight:       e.Weight,
			CreatedAt:    e.CreatedAt,
		}
		if _, err := l.graph.AddLink(ctx, link); err != nil {
			return sum, fmt.Errorf("add link %d: %w", i, err)
		}
		sum.Links++
	}

	l.logger.Info("fixture loaded",
		slog.Int("sources", sum.Sources),
		slog.Int("claims", sum.Claims),
		slog.Int("links", sum.Links))
	return sum, nil
}

// Validate checks keys, references and value ranges. Claim parents must
// appear earlier in the document.
func Validate(doc *Document) error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	known := make(map[string]bool)
	for i, e := range doc.Sources {
		key := ref(model.NodeSource, e.Key)
		switch {
		case e.Key == "":
			add("source %d: missing key", i)
		case known[key]:
			add("source %q: duplicate key", e.Key)
		}
		known[key] = true
		if strings.TrimSpace(e.Title) == "" {
			add("source %q: missing title", e.Key)
		}
		if e.Credibility != nil && (*e.Credibility < 0 || *e.Credibility > 1) {
			add("source %q: credibility %v outside [0,1]", e.Key, *e.Credibility)
		}
	}

	for i, e := range doc.Claims {
		key := ref(model.NodeClaim, e.Key)
		switch {
		case e.Key == "":
			add("claim %d: missing key", i)
		case known[key]:
			add("claim %q: duplicate key", e.Key)
		}
		if e.Type != "" && !e.Type.Valid() {
			add("claim %q: unknown type %q", e.Key, e.Type)
		}
		if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1) {
			add("claim %q: confidence %v outside [0,1]", e.Key, *e.Confidence)
		}
		if e.Parent != "" && !known[ref(model.NodeClaim, e.Parent)] {
			add("claim %q: parent %q must be an earlier claim", e.Key, e.Parent)
		}
		if e.FirstSource != "" && !known[ref(model.NodeSource, e.FirstSource)] {
			add("claim %q: unknown first source %q", e.Key, e.FirstSource)
		}
		known[key] = true
	}

	for i, e := range doc.Links {
		for _, end := range []string{e.From, e.To} {
			if _, _, ok := parseRef(end); !ok {
				add("link %d: endpoint %q must be source:<key> or claim:<key>", i, end)
			} else if !known[end] {
				add("link %d: unknown endpoint %q", i, end)
			}
		}
		if !knownRelationships[e.Relationship] {
			add("link %d: unknown relationship %q", i, e.Relationship)
		}
		if e.Weight < 0 {
			add("link %d: negative weight", i)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}
	return nil
}

func ref(kind model.NodeKind, key string) string {
	return string(kind) + ":" + key
}

func parseRef(s string) (model.NodeKind, string, bool) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || key == "" {
		return "", "", false
	}
	switch model.NodeKind(kind) {
	case model.NodeSource, model.NodeClaim:
		return model.NodeKind(kind), key, true
	}
	return "", "", false
}
