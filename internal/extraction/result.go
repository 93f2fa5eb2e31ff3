// Package extraction runs document content through a tiered pipeline: a
// free local text tier first, then a paid AI-vision tier when local output
// is missing or too thin to trust.
package extraction

// OCR method values recorded on results.
const (
	MethodLocal  = "local"
	MethodVision = "ai-vision"
	MethodNone   = "none"
)

// ScoreMax bounds every importance score.
const ScoreMax = 1000

// Degradation explains a result that carries no trustworthy parsed fields.
// Raw preserves whatever the provider returned so nothing is lost.
type Degradation struct {
	Raw    string `json:"raw,omitempty"`
	Reason string `json:"reason"`
}

// Result is the canonical outcome of one document extraction. A nil
// Degraded pointer marks full success; a non-nil one marks the degraded
// variant, in which the score and description fields are zero values.
type Result struct {
	Text            string       `json:"text"`
	DocumentType    string       `json:"document_type,omitempty"`
	KeyEntities     []string     `json:"key_entities,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	DocumentDate    string       `json:"document_date,omitempty"`
	RelevancyScore  int          `json:"relevancy_score"`
	LifeImpactScore int          `json:"life_impact_score"`
	DetailScore     int          `json:"detail_score"`
	ArchivalScore   int          `json:"archival_score"`
	Cost            float64      `json:"cost"`
	OCRMethod       string       `json:"ocr_method"`
	Degraded        *Degradation `json:"degraded,omitempty"`
}

// IsDegraded reports whether the result is the degraded variant.
func (r *Result) IsDegraded() bool {
	return r.Degraded != nil
}

// Scored reports whether the result carries AI-produced scores.
func (r *Result) Scored() bool {
	return r.OCRMethod == MethodVision && !r.IsDegraded()
}

func degraded(text, method, raw, reason string) *Result {
	return &Result{
		Text:      text,
		OCRMethod: method,
		Degraded: &Degradation{
			Raw:    raw,
			Reason: reason,
		},
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > ScoreMax {
		return ScoreMax
	}
	return n
}
