package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/domain"
	"compliance/internal/embedding/tfidf"
	"compliance/internal/index"
	"compliance/internal/judge"
)

// stubCompleter implements domain.Completer with canned replies keyed by a
// substring of the classified utterance. Needles are matched against the
// utterance section of the prompt only: the retrieved rule documents above it
// quote the trigger vocabulary themselves, so matching the whole prompt would
// select a reply based on rule text rather than input.
type stubCompleter struct {
	mu            sync.Mutex
	replies       map[string]string
	fallbackReply string
	err           error
	calls         int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	utterance := prompt
	if parts := strings.SplitN(prompt, "聊天内容：", 2); len(parts) == 2 {
		utterance = parts[1]
	}
	for needle, reply := range s.replies {
		if strings.Contains(utterance, needle) {
			return reply, nil
		}
	}
	return s.fallbackReply, nil
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	docs := []domain.RuleDocument{
		{EventName: "收益承诺", Content: "【事件名称】收益承诺\n【关键词】稳赚, 保本, 保底, 收益, 稳赚不赔"},
		{EventName: "诱导私下联系", Content: "【事件名称】诱导私下联系\n【关键词】加微信, 个人微信, 私信"},
		{EventName: "辱骂客户", Content: "【事件名称】辱骂客户\n【关键词】傻逼, 侮辱"},
	}
	ix, err := index.Build(docs, tfidf.NewEmbedder(), 2)
	require.NoError(t, err)
	return ix
}

func TestClassifyViolationScenario(t *testing.T) {
	stub := &stubCompleter{
		replies: map[string]string{
			"稳赚不赔": "是否违规：是\n触发事件：收益承诺\n理由：使用稳赚不赔并承诺收益率\n置信度：高",
		},
	}
	c := New(testIndex(t), judge.NewEngine(stub))

	v, err := c.Classify(context.Background(), "这款产品稳赚不赔，年收益能到8%")
	require.NoError(t, err)

	assert.True(t, v.IsViolation)
	assert.Equal(t, []string{"收益承诺"}, v.TriggeredEvents)
	assert.False(t, v.PreCheckUsed)
	assert.Equal(t, domain.ConfidenceHigh, v.Confidence)
	assert.NotEmpty(t, v.RawResponse)
}

func TestClassifyHistoricalReviewShortCircuits(t *testing.T) {
	stub := &stubCompleter{fallbackReply: "是否违规：是\n理由：不应被调用"}
	c := New(testIndex(t), judge.NewEngine(stub))

	v, err := c.Classify(context.Background(), "王大哥之前亏损10万，接触老师后3月已经赚17万了")
	require.NoError(t, err)

	assert.False(t, v.IsViolation)
	assert.True(t, v.PreCheckUsed)
	assert.Equal(t, domain.ConfidenceHigh, v.Confidence)
	assert.Contains(t, v.Reason, "历史业绩")
	// The short-circuit must not touch the model.
	assert.Equal(t, 0, stub.callCount())
}

func TestClassifyWithoutPreCheckAlwaysInvokesModel(t *testing.T) {
	stub := &stubCompleter{fallbackReply: "是否违规：否\n触发事件：无\n理由：历史业绩回顾"}
	c := New(testIndex(t), judge.NewEngine(stub), WithoutPreCheck())

	v, err := c.Classify(context.Background(), "王大哥之前亏损10万，接触老师后3月已经赚17万了")
	require.NoError(t, err)

	assert.False(t, v.IsViolation)
	assert.False(t, v.PreCheckUsed)
	assert.Equal(t, 1, stub.callCount())
}

func TestClassifyIdempotent(t *testing.T) {
	stub := &stubCompleter{fallbackReply: "是否违规：是\n触发事件：辱骂客户\n理由：侮辱性词汇\n置信度：高"}
	c := New(testIndex(t), judge.NewEngine(stub))

	text := "你真是个傻逼"
	first, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClassifyModelFailurePropagates(t *testing.T) {
	stub := &stubCompleter{err: errors.New("service unavailable")}
	c := New(testIndex(t), judge.NewEngine(stub))

	_, err := c.Classify(context.Background(), "这款产品稳赚不赔")
	assert.ErrorIs(t, err, judge.ErrModelInvocation)
}

func TestClassifyDegradedVerdictOnUnparsableReply(t *testing.T) {
	stub := &stubCompleter{fallbackReply: "抱歉，我无法判断。"}
	c := New(testIndex(t), judge.NewEngine(stub))

	v, err := c.Classify(context.Background(), "这款产品稳赚不赔")
	require.NoError(t, err)
	assert.False(t, v.IsViolation)
	assert.Equal(t, "未能解析模型响应", v.Reason)
}

func TestClassifyManyPreservesOrder(t *testing.T) {
	stub := &stubCompleter{
		replies: map[string]string{
			"稳赚不赔": "是否违规：是\n触发事件：收益承诺\n理由：承诺收益",
			"傻逼":   "是否违规：是\n触发事件：辱骂客户\n理由：侮辱性词汇",
		},
		fallbackReply: "是否违规：否\n触发事件：无\n理由：未发现违规",
	}
	c := New(testIndex(t), judge.NewEngine(stub), WithConcurrency(2))

	texts := []string{
		"这款产品稳赚不赔",
		"王大哥之前亏损10万，接触老师后3月已经赚17万了",
		"你真是个傻逼",
		"您好，请问有什么可以帮您？",
	}
	verdicts, err := c.ClassifyMany(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, verdicts, 4)

	assert.True(t, verdicts[0].IsViolation)
	assert.Equal(t, []string{"收益承诺"}, verdicts[0].TriggeredEvents)
	assert.True(t, verdicts[1].PreCheckUsed)
	assert.False(t, verdicts[1].IsViolation)
	assert.True(t, verdicts[2].IsViolation)
	assert.Equal(t, []string{"辱骂客户"}, verdicts[2].TriggeredEvents)
	assert.False(t, verdicts[3].IsViolation)
}

// A neutral utterance still retrieves rule documents whose keyword lines
// contain trigger vocabulary. The stub must not mistake that rule text for the
// input, so the reply here has to be the fallback.
func TestClassifyNeutralTextIgnoresRuleVocabulary(t *testing.T) {
	stub := &stubCompleter{
		replies: map[string]string{
			"稳赚不赔": "是否违规：是\n触发事件：收益承诺\n理由：承诺收益",
			"傻逼":   "是否违规：是\n触发事件：辱骂客户\n理由：侮辱性词汇",
		},
		fallbackReply: "是否违规：否\n触发事件：无\n理由：未发现违规",
	}
	c := New(testIndex(t), judge.NewEngine(stub), WithoutPreCheck())

	v, err := c.Classify(context.Background(), "您好，请问有什么可以帮您？")
	require.NoError(t, err)

	assert.False(t, v.IsViolation)
	assert.Empty(t, v.TriggeredEvents)
	assert.Equal(t, "未发现违规", v.Reason)
}

func TestClassifyManyFailsOnHardError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("timeout")}
	c := New(testIndex(t), judge.NewEngine(stub))

	_, err := c.ClassifyMany(context.Background(), []string{"这款产品稳赚不赔"})
	assert.ErrorIs(t, err, judge.ErrModelInvocation)
}
