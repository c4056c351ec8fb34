package config

import (
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"crosscheck/internal/domain"
	id "crosscheck/pkg/domain"
)

// Config is the immutable process configuration. It is loaded once at startup
// and passed explicitly into constructors; nothing reads configuration from
// ambient globals after Load returns.
type Config struct {
	Server    Server            `yaml:"server"`
	Postgres  Postgres          `yaml:"postgres"`
	Redis     Redis             `yaml:"redis"`
	Kafka     Kafka             `yaml:"kafka"`
	Sources   map[string]Source `yaml:"sources"`
	Matching  Matching          `yaml:"matching"`
	Risk      Risk              `yaml:"risk"`
	Screening Screening         `yaml:"screening"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string `yaml:"addr"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
	// OperatorKeyHash is a bcrypt hash of the operator API key. Empty
	// disables key auth (development only).
	OperatorKeyHash string `yaml:"operator_key_hash"`
}

// Postgres holds connection settings for the snapshot and audit stores.
// An empty URL runs the process on in-memory stores.
type Postgres struct {
	URL string `yaml:"url"`
}

// Redis holds connection settings for the source result cache.
// An empty URL disables the shared cache; the in-memory cache still applies.
type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Kafka configures the optional audit event sink. An empty broker list keeps
// audit persistence local.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RateLimit is the per-source budget the dispatcher enforces.
type RateLimit struct {
	RequestsPerMinute  int `yaml:"requests_per_minute"`
	ConcurrentRequests int `yaml:"concurrent_requests"`
}

// Source describes one external source adapter.
type Source struct {
	Enabled   bool                  `yaml:"enabled"`
	Category  domain.SourceCategory `yaml:"category"`
	Endpoint  string                `yaml:"endpoint"`
	APIKey    string                `yaml:"api_key"`
	RateLimit RateLimit             `yaml:"rate_limit"`
	Timeout   time.Duration         `yaml:"timeout"`
}

// Matching tunes the entity matcher.
type Matching struct {
	MinSimilarity      float64  `yaml:"min_similarity"`
	AcceptThreshold    float64  `yaml:"accept_threshold"`
	CorroborationBonus float64  `yaml:"corroboration_bonus"`
	RoleKeywords       []string `yaml:"role_keywords"`
}

// Risk tunes the aggregation engine. Weights must sum to 1.0; Load fails
// otherwise because a silently skewed composite is worse than no score.
type Risk struct {
	Weights                map[string]float64 `yaml:"weights"`
	LowThreshold           float64            `yaml:"low_threshold"`
	HighThreshold          float64            `yaml:"high_threshold"`
	NeedsReviewWeight      float64            `yaml:"needs_review_weight"`
	AdverseMediaSaturation int                `yaml:"adverse_media_saturation"`
	HighRiskCountries      []string           `yaml:"high_risk_countries"`
	MediumRiskCountries    []string           `yaml:"medium_risk_countries"`
	LowRiskCountries       []string           `yaml:"low_risk_countries"`
	HighRiskIndustries     []string           `yaml:"high_risk_industries"`
}

// Screening tunes the round controller.
type Screening struct {
	ResultsPerQuery int           `yaml:"results_per_query"`
	RoundTimeout    time.Duration `yaml:"round_timeout"`
	// MaxAutoRounds bounds the unattended policy: continue with suggested
	// queries up to this many rounds, then stop.
	MaxAutoRounds int           `yaml:"max_auto_rounds"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// Load reads the YAML config at path, applies environment overrides and
// defaults, and validates. Every error from here is fatal at startup.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if addr := os.Getenv("CROSSCHECK_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if key := os.Getenv("CROSSCHECK_JWT_KEY"); key != "" {
		cfg.Server.JWTSigningKey = key
	}
	if url := os.Getenv("CROSSCHECK_POSTGRES_URL"); url != "" {
		cfg.Postgres.URL = url
	}
	if url := os.Getenv("CROSSCHECK_REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration: conservative rate limits, the
// documented matcher thresholds, and the standard risk weight split.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:          ":8080",
			JWTSigningKey: "dev-secret-key-change-in-production",
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Sources: map[string]Source{},
		Matching: Matching{
			MinSimilarity:      0.6,
			AcceptThreshold:    0.85,
			CorroborationBonus: 0.15,
		},
		Risk: Risk{
			Weights: map[string]float64{
				"geographic":        0.25,
				"customer_type":     0.20,
				"pep_status":        0.20,
				"sanctions":         0.15,
				"adverse_media":     0.10,
				"business_activity": 0.10,
			},
			LowThreshold:           0.4,
			HighThreshold:          0.7,
			NeedsReviewWeight:      0.5,
			AdverseMediaSaturation: 3,
			HighRiskCountries:      []string{"Iran", "North Korea", "Syria", "Myanmar", "Afghanistan"},
			MediumRiskCountries:    []string{"Russia", "Pakistan", "Turkey", "UAE", "China"},
			LowRiskCountries:       []string{"Switzerland", "UK", "Germany", "Canada", "Australia"},
			HighRiskIndustries:     []string{"crypto", "gambling", "money_services", "arms"},
		},
		Screening: Screening{
			ResultsPerQuery: 5,
			RoundTimeout:    45 * time.Second,
			MaxAutoRounds:   3,
			CacheTTL:        5 * time.Minute,
		},
	}
}

// Validate enforces the invariants the pipeline depends on.
func (c *Config) Validate() error {
	var sum float64
	for _, w := range c.Risk.Weights {
		if w < 0 {
			return fmt.Errorf("risk weight must not be negative")
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("risk weights must sum to 1.0, got %.4f", sum)
	}
	if c.Risk.LowThreshold >= c.Risk.HighThreshold {
		return fmt.Errorf("risk thresholds out of order: low %.2f >= high %.2f",
			c.Risk.LowThreshold, c.Risk.HighThreshold)
	}
	if c.Risk.AdverseMediaSaturation < 1 {
		return fmt.Errorf("adverse media saturation must be >= 1")
	}
	if c.Risk.NeedsReviewWeight < 0 || c.Risk.NeedsReviewWeight > 1 {
		return fmt.Errorf("needs_review weight must be in [0,1]")
	}
	if c.Matching.MinSimilarity <= 0 || c.Matching.MinSimilarity >= c.Matching.AcceptThreshold {
		return fmt.Errorf("matching thresholds out of order: floor %.2f, accept %.2f",
			c.Matching.MinSimilarity, c.Matching.AcceptThreshold)
	}
	for name, src := range c.Sources {
		if !src.Enabled {
			continue
		}
		if src.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("source %s: requests_per_minute must be > 0", name)
		}
		if src.RateLimit.ConcurrentRequests <= 0 {
			return fmt.Errorf("source %s: concurrent_requests must be > 0", name)
		}
		switch src.Category {
		case domain.CategorySanctions, domain.CategoryPEP, domain.CategoryAdverseMedia, domain.CategoryWebSearch:
		default:
			return fmt.Errorf("source %s: unknown category %q", name, src.Category)
		}
	}
	return nil
}

// EnabledSources returns the IDs of sources that participate in rounds,
// in stable (sorted) order.
func (c *Config) EnabledSources() []id.SourceID {
	out := make([]id.SourceID, 0, len(c.Sources))
	for name, src := range c.Sources {
		if src.Enabled {
			out = append(out, id.SourceID(name))
		}
	}
	slices.Sort(out)
	return out
}
