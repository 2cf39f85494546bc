package ingest

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/forensia/internal/model"
)

// AuthorityClassifier maps source URLs to authority tiers and prior credibility
type AuthorityClassifier struct {
	config       model.AuthorityConfig
	primaryMap   map[string]bool
	secondaryMap map[string]bool
	pathPatterns []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier builds a classifier; invalid path patterns are skipped
func NewAuthorityClassifier(config model.AuthorityConfig) *AuthorityClassifier {
	classifier := &AuthorityClassifier{
		config:       config,
		primaryMap:   make(map[string]bool),
		secondaryMap: make(map[string]bool),
	}

	for _, domain := range config.PrimaryDomains {
		classifier.primaryMap[strings.ToLower(domain)] = true
	}
	for _, domain := range config.SecondaryDomains {
		classifier.secondaryMap[strings.ToLower(domain)] = true
	}

	for _, pp := range config.PathPatterns {
		re, err := regexp.Compile(pp.Pattern)
		if err != nil {
			continue
		}
		classifier.pathPatterns = append(classifier.pathPatterns, compiledPattern{
			pattern: re,
			tier:    parseTier(pp.Tier),
		})
	}

	return classifier
}

// Classify returns the authority tier of a URL. Unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.TierTertiary
	}
	host := strings.ToLower(parsed.Hostname())

	if matchesDomain(host, a.primaryMap) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondaryMap) {
		return model.TierSecondary
	}

	for _, cp := range a.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	// government and academic hosts
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// Prior returns the prior credibility for a URL; a source without a URL has none
func (a *AuthorityClassifier) Prior(rawURL string) float64 {
	if strings.TrimSpace(rawURL) == "" {
		return 0
	}
	switch a.Classify(rawURL) {
	case model.TierPrimary:
		return a.config.PrimaryPrior
	case model.TierSecondary:
		return a.config.SecondaryPrior
	default:
		return a.config.TertiaryPrior
	}
}

// matchesDomain reports whether host is a listed domain or a subdomain of one
func matchesDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func parseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
