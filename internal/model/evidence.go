package model

// Source is an originator or carrier node (document, post, paper, ...)
type Source struct {
	ID          int64      `json:"id" yaml:"id"`
	Title       string     `json:"source_title" yaml:"title"`
	Type        SourceType `json:"source_type" yaml:"type"`
	URL         string     `json:"source_url,omitempty" yaml:"url,omitempty"`
	DocumentCID string     `json:"document_cid,omitempty" yaml:"document_cid,omitempty"` // Content address of the archived document
	Author      string     `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedAt string     `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Credibility float64    `json:"credibility" yaml:"credibility"` // Prior-elicited credibility in [0,1]
	Platform    string     `json:"platform,omitempty" yaml:"platform,omitempty"`
	CreatedAt   string     `json:"created_at" yaml:"created_at,omitempty"`
}

// SourceType classifies the carrier of a source
type SourceType string

const (
	SourceTypeDocument      SourceType = "document"
	SourceTypeIPFS          SourceType = "ipfs_cid"
	SourceTypeURL           SourceType = "url"
	SourceTypeArchive       SourceType = "archive"
	SourceTypeFOIA          SourceType = "foia_response"
	SourceTypeAcademicPaper SourceType = "academic_paper"
	SourceTypePatent        SourceType = "patent"
	SourceTypeTestimony     SourceType = "testimony"
	SourceTypeMeasurement   SourceType = "measurement"
	SourceTypeCalculation   SourceType = "calculation"
	SourceTypeSocial        SourceType = "social"
)

// NodeKind is the endpoint type of an evidence link
type NodeKind string

const (
	NodeClaim  NodeKind = "claim"
	NodeSource NodeKind = "source"
)

// Relationship tags an evidence link
type Relationship string

const (
	RelSupports    Relationship = "supports"
	RelReferences  Relationship = "references"
	RelDerivesFrom Relationship = "derives_from"
	RelContradicts Relationship = "contradicts"
	RelSupersedes  Relationship = "supersedes"
	RelRelated     Relationship = "related"
)

// IsSupporting reports whether the relationship counts toward a source's support tally
func (r Relationship) IsSupporting() bool {
	return r == RelSupports || r == RelReferences || r == RelDerivesFrom
}

// IsContradicting reports whether the relationship counts toward a source's contradict tally
func (r Relationship) IsContradicting() bool {
	return r == RelContradicts || r == RelSupersedes
}

// IsLineage reports whether a source-to-source link of this kind extends a source chain
func (r Relationship) IsLineage() bool {
	return r == RelReferences || r == RelDerivesFrom
}

// EvidenceLink is a directed, typed, weighted edge between two graph nodes
type EvidenceLink struct {
	ID           int64        `json:"id" yaml:"id,omitempty"`
	FromType     NodeKind     `json:"from_type" yaml:"from_type"`
	FromID       int64        `json:"from_id" yaml:"from_id"`
	ToType       NodeKind     `json:"to_type" yaml:"to_type"`
	ToID         int64        `json:"to_id" yaml:"to_id"`
	Relationship Relationship `json:"relationship" yaml:"relationship"`
	Weight       float64      `json:"weight" yaml:"weight,omitempty"`
	CreatedAt    string       `json:"created_at" yaml:"created_at,omitempty"` // Raw timestamp; may be malformed
}

// ClaimSource returns the (claim, source) endpoints of a source<->claim link.
// ok is false for claim<->claim and source<->source links.
func (l EvidenceLink) ClaimSource() (claimID, sourceID int64, ok bool) {
	switch {
	case l.FromType == NodeSource && l.ToType == NodeClaim:
		return l.ToID, l.FromID, true
	case l.FromType == NodeClaim && l.ToType == NodeSource:
		return l.FromID, l.ToID, true
	}
	return 0, 0, false
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Laws, statutes, academic papers, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, social platforms
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
