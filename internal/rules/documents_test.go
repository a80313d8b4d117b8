package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/domain"
)

func sampleRule() domain.ComplianceRule {
	return domain.ComplianceRule{
		EventName:   "收益承诺",
		RiskLevel:   domain.RiskHigh,
		Score:       10,
		Description: "承诺确定性收益",
		Trigger: domain.TriggerConfig{
			Keywords:     []string{"稳赚", "保本", "保底"},
			ContextWords: []string{"产品", "收益"},
		},
		Whitelist: []string{"投资有风险"},
		FewShot: []domain.FewShotExample{
			{Input: "稳赚不赔", Violation: true, Reason: "确定性承诺"},
			{Input: "学员赚了7万，投资有风险", Violation: false, Reason: "含风险提示"},
		},
	}
}

func TestBuildDocumentsRendering(t *testing.T) {
	docs := BuildDocuments([]domain.ComplianceRule{sampleRule()})
	require.Len(t, docs, 1)
	assert.Equal(t, "收益承诺", docs[0].EventName)

	content := docs[0].Content
	assert.Contains(t, content, "【事件名称】收益承诺")
	// Keywords are hoisted into literal text for retrieval quality.
	assert.Contains(t, content, "【关键词】稳赚, 保本, 保底")
	assert.Contains(t, content, "【风险等级】high")
	assert.Contains(t, content, "【分值】10")
	assert.Contains(t, content, "【描述】承诺确定性收益")
	assert.Contains(t, content, "【上下文词】产品, 收益")
	assert.Contains(t, content, "【白名单】投资有风险")
	assert.Contains(t, content, "违规")
	assert.Contains(t, content, "不违规")
	assert.Contains(t, content, "确定性承诺")
}

func TestBuildDocumentsEmptySections(t *testing.T) {
	rule := domain.ComplianceRule{EventName: "空规则", RiskLevel: domain.RiskLow}
	docs := BuildDocuments([]domain.ComplianceRule{rule})
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "【关键词】无")
	assert.Contains(t, docs[0].Content, "【白名单】无")
	assert.Contains(t, docs[0].Content, "【上下文词】无")
}

func TestBuildDocumentsCapsExamplesAtThree(t *testing.T) {
	rule := sampleRule()
	rule.FewShot = []domain.FewShotExample{
		{Input: "一", Violation: true, Reason: "r1"},
		{Input: "二", Violation: true, Reason: "r2"},
		{Input: "三", Violation: true, Reason: "r3"},
		{Input: "四", Violation: true, Reason: "r4"},
	}
	docs := BuildDocuments([]domain.ComplianceRule{rule})
	content := docs[0].Content
	assert.Contains(t, content, "r3")
	assert.NotContains(t, content, "r4")
	assert.Equal(t, 3, strings.Count(content, "\n- "))
}

func TestBuildDocumentsDeterministic(t *testing.T) {
	rules := []domain.ComplianceRule{sampleRule(), {EventName: "另一条", RiskLevel: domain.RiskLow}}
	first := BuildDocuments(rules)
	second := BuildDocuments(rules)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}
