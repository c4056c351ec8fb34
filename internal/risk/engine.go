package risk

import (
	"strings"
	"time"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
)

// Country sub-scores. Unknown countries score between the low and medium
// bands: absence from the table is weak evidence either way.
const (
	countryScoreHigh    = 1.0
	countryScoreMedium  = 0.6
	countryScoreUnknown = 0.4
	countryScoreLow     = 0.2
)

// Engine computes risk assessments from an evidence log and static client
// attributes. Assess is a pure function of its inputs and the configuration
// captured at construction; recomputing over an unchanged log yields an
// identical score.
type Engine struct {
	weights            map[Category]float64
	lowThreshold       float64
	highThreshold      float64
	needsReviewWeight  float64
	mediaSaturation    int
	countryTier        map[string]float64
	highRiskIndustries []string
}

// NewEngine builds an engine from validated risk configuration.
func NewEngine(cfg config.Risk) *Engine {
	countryTier := make(map[string]float64)
	for _, c := range cfg.HighRiskCountries {
		countryTier[foldCountry(c)] = countryScoreHigh
	}
	for _, c := range cfg.MediumRiskCountries {
		countryTier[foldCountry(c)] = countryScoreMedium
	}
	for _, c := range cfg.LowRiskCountries {
		countryTier[foldCountry(c)] = countryScoreLow
	}

	weights := make(map[Category]float64, len(cfg.Weights))
	for name, w := range cfg.Weights {
		weights[Category(name)] = w
	}

	return &Engine{
		weights:            weights,
		lowThreshold:       cfg.LowThreshold,
		highThreshold:      cfg.HighThreshold,
		needsReviewWeight:  cfg.NeedsReviewWeight,
		mediaSaturation:    cfg.AdverseMediaSaturation,
		countryTier:        countryTier,
		highRiskIndustries: cfg.HighRiskIndustries,
	}
}

// Assess computes the weighted composite score and per-category factors.
// The evidence log is read, never mutated. An empty log is a legitimate
// zero-signal input: pep, sanctions, and media sub-scores drop to zero and
// the composite reflects only the static attributes.
func (e *Engine) Assess(identity domain.ClientIdentity, entries []domain.EvidenceEntry, at time.Time) Assessment {
	factors := []Factor{
		e.geographic(identity),
		e.customerType(identity),
		e.registryStatus(CategoryPEPStatus, domain.CategoryPEP, entries),
		e.registryStatus(CategorySanctions, domain.CategorySanctions, entries),
		e.adverseMedia(entries),
		e.businessActivity(identity),
	}

	var composite float64
	for i := range factors {
		factors[i].Weight = e.weights[factors[i].Category]
		composite += factors[i].Score * factors[i].Weight
	}

	tier := e.tier(composite)
	return Assessment{
		CompositeScore:      composite,
		Tier:                tier,
		DueDiligence:        diligenceFor(tier),
		Factors:             factors,
		MonitoringFrequency: monitoringFor(tier),
		Recommendations:     recommendations(tier, factors),
		GeneratedAt:         at,
	}
}

func (e *Engine) tier(score float64) Tier {
	switch {
	case score > e.highThreshold:
		return TierHigh
	case score >= e.lowThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// geographic takes the worst tier across every country attached to the
// identity. No countries at all floors at the low score rather than zero:
// an identity that discloses nothing is not thereby safest.
func (e *Engine) geographic(identity domain.ClientIdentity) Factor {
	score := countryScoreLow
	var worst string
	for _, country := range identity.Countries() {
		s, ok := e.countryTier[foldCountry(country)]
		if !ok {
			s = countryScoreUnknown
		}
		if s > score {
			score = s
			worst = country
		}
	}
	return Factor{
		Category: CategoryGeographic,
		Score:    score,
		Detail:   worst,
	}
}

func (e *Engine) customerType(identity domain.ClientIdentity) Factor {
	score := 0.3
	var notes []string
	if identity.EntityType == domain.EntityCorporate {
		score = 0.5
		notes = append(notes, "corporate entity")
		if identity.ComplexStructure {
			score += 0.3
			notes = append(notes, "complex ownership structure")
		}
		if identity.OffshoreElements {
			score += 0.2
			notes = append(notes, "offshore components")
		}
	}
	if e.highRiskIndustry(identity.Industry) {
		score += 0.3
		notes = append(notes, "high-risk industry: "+identity.Industry)
	}
	if score > 1.0 {
		score = 1.0
	}
	return Factor{
		Category: CategoryCustomerType,
		Score:    score,
		Detail:   strings.Join(notes, "; "),
	}
}

// registryStatus scores pep_status and sanctions identically: full signal
// for accepted evidence, the configured fraction for needs_review-only
// evidence, zero for none.
func (e *Engine) registryStatus(cat Category, sourceCat domain.SourceCategory, entries []domain.EvidenceEntry) Factor {
	var accepted, review []int
	for _, entry := range entries {
		if entry.Decision.Candidate.Category != sourceCat {
			continue
		}
		switch entry.Decision.Decision {
		case domain.DecisionAccepted:
			accepted = append(accepted, entry.Seq)
		case domain.DecisionNeedsReview:
			review = append(review, entry.Seq)
		}
	}

	switch {
	case len(accepted) > 0:
		return Factor{Category: cat, Score: 1.0, Evidence: accepted, Detail: "accepted match"}
	case len(review) > 0:
		return Factor{Category: cat, Score: e.needsReviewWeight, Evidence: review, Detail: "unresolved potential match"}
	default:
		return Factor{Category: cat, Score: 0.0}
	}
}

// adverseMedia grows linearly with accepted negative coverage and saturates
// at the configured count.
func (e *Engine) adverseMedia(entries []domain.EvidenceEntry) Factor {
	var refs []int
	for _, entry := range entries {
		d := entry.Decision
		if d.Candidate.Category == domain.CategoryAdverseMedia &&
			d.Decision == domain.DecisionAccepted &&
			d.Candidate.Sentiment == "negative" {
			refs = append(refs, entry.Seq)
		}
	}
	score := float64(len(refs)) / float64(e.mediaSaturation)
	if score > 1.0 {
		score = 1.0
	}
	return Factor{Category: CategoryAdverseMedia, Score: score, Evidence: refs}
}

func (e *Engine) businessActivity(identity domain.ClientIdentity) Factor {
	score := 0.3
	if e.highRiskIndustry(identity.Industry) {
		score = 0.8
	} else if identity.Industry == "" {
		score = 0.2
	}
	return Factor{
		Category: CategoryBusinessActivity,
		Score:    score,
		Detail:   identity.Industry,
	}
}

func (e *Engine) highRiskIndustry(industry string) bool {
	folded := foldCountry(industry)
	if folded == "" {
		return false
	}
	for _, h := range e.highRiskIndustries {
		if strings.Contains(folded, strings.ReplaceAll(foldCountry(h), "_", " ")) {
			return true
		}
	}
	return false
}

func foldCountry(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func diligenceFor(tier Tier) DueDiligence {
	if tier == TierHigh {
		return DiligenceEnhanced
	}
	return DiligenceStandard
}

func monitoringFor(tier Tier) string {
	switch tier {
	case TierHigh:
		return "quarterly review with continuous transaction monitoring"
	case TierMedium:
		return "semi-annual review with standard transaction monitoring"
	default:
		return "annual review with standard transaction monitoring"
	}
}

func recommendations(tier Tier, factors []Factor) []string {
	var out []string
	if tier == TierHigh {
		out = append(out,
			"require senior management approval for onboarding",
			"conduct enhanced due diligence including source of wealth verification",
		)
	}
	for _, f := range factors {
		switch f.Category {
		case CategoryGeographic:
			if f.Score >= countryScoreHigh {
				out = append(out, "verify business rationale for high-risk country connections")
			}
		case CategoryPEPStatus:
			if f.Score > 0 {
				out = append(out, "establish source of wealth and source of funds")
			}
		case CategorySanctions:
			if f.Score > 0.5 {
				out = append(out, "escalate to compliance for sanctions review before proceeding")
			}
		case CategoryAdverseMedia:
			if f.Score > 0.4 {
				out = append(out, "investigate adverse media findings in detail")
			}
		}
	}
	return out
}
