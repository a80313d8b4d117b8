package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"compliance/internal/domain"
)

var (
	// ErrRulesNotFound means the rule catalogue file does not exist.
	ErrRulesNotFound = errors.New("rules file not found")
	// ErrRulesShape means the catalogue root is not a sequence of rule records.
	ErrRulesShape = errors.New("rules file root must be a sequence")
)

// SkippedRule records one invalid catalogue entry that was dropped during load.
type SkippedRule struct {
	Index int
	Cause error
}

// Load reads the rule catalogue from a YAML file. Records that fail
// validation are skipped, reported in the returned slice and logged; they
// never abort the load. Source order is preserved.
func Load(path string, logger *slog.Logger) ([]domain.ComplianceRule, []SkippedRule, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRulesNotFound, path)
		}
		return nil, nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRulesShape, err)
	}
	if len(root.Content) == 0 {
		return nil, nil, fmt.Errorf("%w: empty document", ErrRulesShape)
	}
	seq := root.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("%w: got %s", ErrRulesShape, nodeKind(seq.Kind))
	}

	var (
		rules   []domain.ComplianceRule
		skipped []SkippedRule
		named   = make(map[string]struct{})
	)
	for i, item := range seq.Content {
		var rule domain.ComplianceRule
		if err := item.Decode(&rule); err != nil {
			skipped = append(skipped, SkippedRule{Index: i, Cause: err})
			logger.Warn("skipping invalid rule", "index", i, "error", err)
			continue
		}
		if err := validate(rule); err != nil {
			skipped = append(skipped, SkippedRule{Index: i, Cause: err})
			logger.Warn("skipping invalid rule", "index", i, "error", err)
			continue
		}
		// Duplicates are permitted but worth surfacing: retrieval and
		// verdict parsing key off event names.
		if _, ok := named[rule.EventName]; ok {
			logger.Warn("duplicate event name in catalogue", "event", rule.EventName, "index", i)
		}
		named[rule.EventName] = struct{}{}
		rules = append(rules, rule)
	}
	return rules, skipped, nil
}

func validate(rule domain.ComplianceRule) error {
	if rule.EventName == "" {
		return errors.New("event_name is required")
	}
	if !rule.RiskLevel.Valid() {
		return fmt.Errorf("risk_level %q is not one of low/medium/high", rule.RiskLevel)
	}
	if rule.Score < 0 {
		return fmt.Errorf("score must be non-negative, got %d", rule.Score)
	}
	return nil
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
