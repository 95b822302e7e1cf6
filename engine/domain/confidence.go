package domain

// ConfidenceLevel buckets an overall confidence score.
type ConfidenceLevel string

const (
	LevelHigh   ConfidenceLevel = "high"
	LevelMedium ConfidenceLevel = "medium"
	LevelLow    ConfidenceLevel = "low"
)

// Signal weights for the overall confidence score.
const (
	weightRetrieval  = 0.35
	weightCoverage   = 0.25
	weightEntailment = 0.25
	weightLexical    = 0.15
)

// Level thresholds on the overall score.
const (
	highThreshold   = 0.8
	mediumThreshold = 0.6
)

// ConfidenceScore aggregates the four answer-quality signals.
type ConfidenceScore struct {
	RetrievalQuality float64         `json:"retrieval_quality"`
	CoverageScore    float64         `json:"coverage_score"`
	EntailmentScore  float64         `json:"entailment_score"`
	LexicalOverlap   float64         `json:"lexical_overlap"`
	Overall          float64         `json:"overall"`
	Level            ConfidenceLevel `json:"level"`
}

// ScoreConfidence combines the four signals into an overall score and level.
// Inputs are clamped to [0, 1] before weighting, so Overall is always in
// [0, 1] and monotone in each signal.
func ScoreConfidence(retrieval, coverage, entailment, lexical float64) ConfidenceScore {
	retrieval = clamp01(retrieval)
	coverage = clamp01(coverage)
	entailment = clamp01(entailment)
	lexical = clamp01(lexical)

	overall := weightRetrieval*retrieval +
		weightCoverage*coverage +
		weightEntailment*entailment +
		weightLexical*lexical

	level := LevelLow
	switch {
	case overall >= highThreshold:
		level = LevelHigh
	case overall >= mediumThreshold:
		level = LevelMedium
	}

	return ConfidenceScore{
		RetrievalQuality: retrieval,
		CoverageScore:    coverage,
		EntailmentScore:  entailment,
		LexicalOverlap:   lexical,
		Overall:          overall,
		Level:            level,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
