package model

import "time"

// Config is the complete forensia configuration
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Schedule    ScheduleConfig    `yaml:"schedule" mapstructure:"schedule"`
	Authority   AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the graph store
type StoreConfig struct {
	Path        string        `yaml:"path" mapstructure:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
	MaxOpenConn int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// AnalysisConfig holds the tunable analyzer parameters
type AnalysisConfig struct {
	WindowHours  float64 `yaml:"window_hours" mapstructure:"window_hours"`   // Coordination clustering window
	EMAAlpha     float64 `yaml:"ema_alpha" mapstructure:"ema_alpha"`         // Reputation EMA smoothing
	DecayFactor  float64 `yaml:"decay_factor" mapstructure:"decay_factor"`   // Provenance confidence decay per hop
	MaxDepth     int     `yaml:"max_depth" mapstructure:"max_depth"`         // Provenance hop cap
	PageRankIter int     `yaml:"pagerank_iter" mapstructure:"pagerank_iter"` // PageRank iteration cap
}

// CacheConfig controls the report cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls pass fan-out
type ConcurrencyConfig struct {
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	PassesPerSec   float64 `yaml:"passes_per_second" mapstructure:"passes_per_second"`
	PassBurst      int     `yaml:"pass_burst" mapstructure:"pass_burst"`
	ReportSections int     `yaml:"report_sections" mapstructure:"report_sections"`
}

// ScheduleConfig holds cron specs per analyzer pass; empty disables a pass
type ScheduleConfig struct {
	Reputation   string `yaml:"reputation" mapstructure:"reputation"`
	Influence    string `yaml:"influence" mapstructure:"influence"`
	Coordination string `yaml:"coordination" mapstructure:"coordination"`
	Provenance   string `yaml:"provenance" mapstructure:"provenance"`
	MetricsAddr  string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// AuthorityConfig seeds prior credibility for ingested sources
type AuthorityConfig struct {
	PrimaryDomains   []string      `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string      `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern `yaml:"path_patterns" mapstructure:"path_patterns"`
	PrimaryPrior     float64       `yaml:"primary_prior" mapstructure:"primary_prior"`
	SecondaryPrior   float64       `yaml:"secondary_prior" mapstructure:"secondary_prior"`
	TertiaryPrior    float64       `yaml:"tertiary_prior" mapstructure:"tertiary_prior"`
}

// IngestConfig controls fetching fixture documents over HTTP
type IngestConfig struct {
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes      int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	Retries       int           `yaml:"retries" mapstructure:"retries"`
}

// PathPattern maps a URL path regex to an authority tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"-" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"`
	StrictEvidence bool   `yaml:"strict_evidence" mapstructure:"strict_evidence"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path:        "forensia.db",
			BusyTimeout: 10 * time.Second,
			MaxOpenConn: 10,
		},
		Analysis: AnalysisConfig{
			WindowHours:  24.0,
			EMAAlpha:     0.3,
			DecayFactor:  0.85,
			MaxDepth:     20,
			PageRankIter: 100,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".forensia-cache",
			MemoryTTL: 5 * time.Minute,
			DiskTTL:   time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:        4,
			PassesPerSec:   1.0,
			PassBurst:      2,
			ReportSections: 4,
		},
		Schedule: ScheduleConfig{
			Reputation:   "0 * * * *",
			Influence:    "15 */6 * * *",
			Coordination: "*/30 * * * *",
			Provenance:   "45 */6 * * *",
			MetricsAddr:  ":9464",
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov", "ncbi.nlm.nih.gov",
				"nature.com", "science.org", "patents.google.com", "foia.gov",
				"congress.gov", "federalregister.gov", "archives.gov",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "reuters.com", "apnews.com",
				"bbc.co.uk", "nytimes.com", "theguardian.com", "web.archive.org",
			},
			PathPatterns: []PathPattern{
				{Pattern: `\.pdf$`, Tier: "primary"},
				{Pattern: `/doi/`, Tier: "primary"},
			},
			PrimaryPrior:   0.9,
			SecondaryPrior: 0.7,
			TertiaryPrior:  0.4,
		},
		Ingest: IngestConfig{
			UserAgent:     "Forensia/0.1 (+https://github.com/ppiankov/forensia)",
			Timeout:       30 * time.Second,
			MaxBytes:      10 << 20,
			RespectRobots: true,
			Retries:       3,
		},
		LLM: LLMConfig{
			Provider:       "",
			Model:          "gpt-4o-mini",
			Timeout:        30,
			StrictEvidence: true,
			MaxTokens:      800,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
