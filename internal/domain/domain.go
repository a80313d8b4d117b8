package domain

import "context"

// RiskLevel grades how severe a rule violation is considered.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether the level is one of the known grades.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Confidence is a categorical certainty attached to signals and verdicts.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// TriggerConfig describes what vocabulary activates a rule.
type TriggerConfig struct {
	Keywords      []string `yaml:"keywords"`
	RegexPatterns []string `yaml:"regex_patterns"`
	ContextWords  []string `yaml:"context_words"`
}

// FewShotExample is a labeled input/outcome/reason triple anchoring a rule's boundary.
type FewShotExample struct {
	Input     string `yaml:"input"`
	Violation bool   `yaml:"violation"`
	Reason    string `yaml:"reason"`
}

// ComplianceRule is one catalogued violation type from the rule corpus.
type ComplianceRule struct {
	EventName   string           `yaml:"event_name"`
	RiskLevel   RiskLevel        `yaml:"risk_level"`
	Score       int              `yaml:"score"`
	Description string           `yaml:"description"`
	Trigger     TriggerConfig    `yaml:"trigger"`
	Whitelist   []string         `yaml:"whitelist"`
	FewShot     []FewShotExample `yaml:"few_shot"`
}

// RuleDocument is the flattened text rendering of one rule, used for
// retrieval indexing and prompt assembly. Regenerated on every corpus load.
type RuleDocument struct {
	EventName string
	Content   string
}

// ScoredDocument is a retrieval hit with its similarity score.
type ScoredDocument struct {
	Document RuleDocument
	Score    float64
}

// PreCheckSignal is the per-call output of the heuristic pre-check layer.
// Only a high-confidence signal may short-circuit the model call.
type PreCheckSignal struct {
	IsPerformanceReview bool
	HasRiskDisclaimer   bool
	IsOfficialChannel   bool
	UsesPastTense       bool
	IsCustomerInquiry   bool
	IsServiceParty      bool
	IsMarketingContext  bool
	Confidence          Confidence
	SuggestedReason     string
}

// Verdict is the final typed result of one classification call.
type Verdict struct {
	IsViolation     bool
	TriggeredEvents []string
	Reason          string
	Confidence      Confidence
	PreCheckUsed    bool
	RawResponse     string
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// Completer performs a single generative text completion. Implementations
// must pin sampling randomness so identical prompts yield identical replies.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier defines the operations exposed by the application core.
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
	ClassifyMany(ctx context.Context, texts []string) ([]Verdict, error)
}
