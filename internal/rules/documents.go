package rules

import (
	"fmt"
	"strings"

	"compliance/internal/domain"
)

const maxRenderedExamples = 3

// BuildDocuments renders each rule into a flattened text block, one document
// per rule, order preserving. Trigger keywords are hoisted into an explicit
// line of raw text: embedding similarity improves materially when the
// trigger vocabulary appears as literal tokens near the rule description.
func BuildDocuments(rules []domain.ComplianceRule) []domain.RuleDocument {
	docs := make([]domain.RuleDocument, 0, len(rules))
	for _, rule := range rules {
		docs = append(docs, domain.RuleDocument{
			EventName: rule.EventName,
			Content:   renderRule(rule),
		})
	}
	return docs
}

func renderRule(rule domain.ComplianceRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【事件名称】%s\n", rule.EventName)
	fmt.Fprintf(&b, "【关键词】%s\n", joinOrNone(rule.Trigger.Keywords))
	fmt.Fprintf(&b, "【风险等级】%s\n", rule.RiskLevel)
	fmt.Fprintf(&b, "【分值】%d\n", rule.Score)
	fmt.Fprintf(&b, "【描述】%s\n", rule.Description)
	fmt.Fprintf(&b, "【上下文词】%s\n", joinOrNone(rule.Trigger.ContextWords))
	fmt.Fprintf(&b, "【白名单】%s\n", joinOrNone(rule.Whitelist))
	b.WriteString("【典型示例】")
	for i, ex := range rule.FewShot {
		if i == maxRenderedExamples {
			break
		}
		label := "不违规"
		if ex.Violation {
			label = "违规"
		}
		fmt.Fprintf(&b, "\n- %s: %q → %s", label, ex.Input, ex.Reason)
	}
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "无"
	}
	return strings.Join(items, ", ")
}
