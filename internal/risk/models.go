package risk

import "time"

// Category names one scoring dimension. The set is closed; weights are
// configured per category and validated to sum to 1.0 at startup.
type Category string

const (
	CategoryGeographic       Category = "geographic"
	CategoryCustomerType     Category = "customer_type"
	CategoryPEPStatus        Category = "pep_status"
	CategorySanctions        Category = "sanctions"
	CategoryAdverseMedia     Category = "adverse_media"
	CategoryBusinessActivity Category = "business_activity"
)

// Categories returns all scoring categories in presentation order.
func Categories() []Category {
	return []Category{
		CategoryGeographic,
		CategoryCustomerType,
		CategoryPEPStatus,
		CategorySanctions,
		CategoryAdverseMedia,
		CategoryBusinessActivity,
	}
}

// Tier is the derived risk classification.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// DueDiligence is the review depth implied by the tier.
type DueDiligence string

const (
	DiligenceStandard DueDiligence = "standard"
	DiligenceEnhanced DueDiligence = "enhanced"
)

// Factor is one category's contribution to the composite score.
type Factor struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"` // raw sub-score in [0,1]
	Weight   float64  `json:"weight"`
	// Evidence references the sequence numbers of the evidence log entries
	// that drove the sub-score. Empty for factors derived from static
	// client attributes.
	Evidence []int  `json:"evidence,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Assessment is the final weighted classification. Immutable once computed;
// a re-run produces a new value.
type Assessment struct {
	CompositeScore float64      `json:"composite_score"`
	Tier           Tier         `json:"tier"`
	DueDiligence   DueDiligence `json:"due_diligence"`
	Factors        []Factor     `json:"factors"`
	// MonitoringFrequency and Recommendations mirror what compliance
	// reviewers act on; the report generator renders them verbatim.
	MonitoringFrequency string    `json:"monitoring_frequency"`
	Recommendations     []string  `json:"recommendations,omitempty"`
	GeneratedAt         time.Time `json:"generated_at"`
}
