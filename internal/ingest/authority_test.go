package ingest

import (
	"testing"

	"github.com/ppiankov/forensia/internal/model"
)

func testAuthority() *AuthorityClassifier {
	return NewAuthorityClassifier(model.AuthorityConfig{
		PrimaryDomains:   []string{"doi.org", "legislation.gov.uk", "arxiv.org"},
		SecondaryDomains: []string{"wikipedia.org", "reuters.com"},
		PathPatterns: []model.PathPattern{
			{Pattern: `\.pdf$`, Tier: "primary"},
			{Pattern: `/press/`, Tier: "secondary"},
			{Pattern: `([`, Tier: "primary"}, // invalid, skipped
		},
		PrimaryPrior:   0.9,
		SecondaryPrior: 0.7,
		TertiaryPrior:  0.4,
	})
}

func TestAuthorityClassifier_Classify(t *testing.T) {
	classifier := testAuthority()

	tests := []struct {
		desc     string
		url      string
		expected model.AuthorityTier
	}{
		{"primary exact", "https://doi.org/10.1234/example", model.TierPrimary},
		{"primary subdomain", "https://www.legislation.gov.uk/ukpga/1998/42", model.TierPrimary},
		{"primary with port", "https://arxiv.org:443/abs/2401.00001", model.TierPrimary},
		{"case insensitive host", "https://EN.Wikipedia.ORG/wiki/Reservoir", model.TierSecondary},
		{"secondary", "https://www.reuters.com/world/", model.TierSecondary},
		{"pdf path", "https://example.com/reports/q3.pdf", model.TierPrimary},
		{"press path", "https://agency.example/press/2024-01", model.TierSecondary},
		{"gov tld", "https://water.ca.gov/levels", model.TierPrimary},
		{"edu tld", "https://hydrology.mit.edu/research", model.TierPrimary},
		{"ac.uk", "https://oxford.ac.uk/research", model.TierPrimary},
		{"suffix is not a subdomain", "https://notdoi.org/x", model.TierTertiary},
		{"tertiary default", "https://randomsite.com/page", model.TierTertiary},
		{"not a url", "://missing-scheme", model.TierTertiary},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestAuthorityClassifier_Prior(t *testing.T) {
	classifier := testAuthority()

	tests := []struct {
		url  string
		want float64
	}{
		{"https://doi.org/10.1/x", 0.9},
		{"https://en.wikipedia.org/wiki/X", 0.7},
		{"https://someblog.net/post", 0.4},
		{"", 0},
		{"   ", 0},
	}

	for _, tt := range tests {
		if got := classifier.Prior(tt.url); got != tt.want {
			t.Errorf("Prior(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
