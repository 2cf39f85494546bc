package model

// Claim is an atomic assertion node in the evidence graph
type Claim struct {
	ID             int64     `json:"id" yaml:"id"`
	Text           string    `json:"claim_text" yaml:"text"`
	Type           ClaimType `json:"claim_type" yaml:"type"`
	FirstSource    *int64    `json:"first_source,omitempty" yaml:"first_source,omitempty"`       // Source that first carried the claim
	Confidence     float64   `json:"confidence" yaml:"confidence"`                               // Base confidence in [0,1]
	Verification   string    `json:"verification,omitempty" yaml:"verification,omitempty"`       // unverified, partial, verified, disputed
	MutationParent *int64    `json:"mutation_parent,omitempty" yaml:"mutation_parent,omitempty"` // Claim this one was revised from
	MutationDiff   string    `json:"mutation_diff,omitempty" yaml:"mutation_diff,omitempty"`
	Tags           []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt      string    `json:"created_at" yaml:"created_at,omitempty"`
}

// HasParent reports whether the claim is a revision of another claim
func (c Claim) HasParent() bool {
	return c.MutationParent != nil && *c.MutationParent != 0
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeHypothesis  ClaimType = "hypothesis"
	ClaimTypeObservation ClaimType = "observation"
	ClaimTypeAssertion   ClaimType = "assertion"
	ClaimTypeDerived     ClaimType = "derived"
	ClaimTypeRebuttal    ClaimType = "rebuttal"
	ClaimTypeRetraction  ClaimType = "retraction"
	ClaimTypePrediction  ClaimType = "prediction"
	ClaimTypeHistorical  ClaimType = "historical"
)

// Valid reports whether t is one of the known claim types
func (t ClaimType) Valid() bool {
	switch t {
	case ClaimTypeHypothesis, ClaimTypeObservation, ClaimTypeAssertion, ClaimTypeDerived,
		ClaimTypeRebuttal, ClaimTypeRetraction, ClaimTypePrediction, ClaimTypeHistorical:
		return true
	}
	return false
}
