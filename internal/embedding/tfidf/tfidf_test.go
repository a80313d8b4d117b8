package tfidf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"承诺确定性收益 稳赚不赔 保本保底",
	"引导客户添加个人微信 私下联系",
	"对客户使用侮辱性语言",
}

func TestPrepareEmptyCorpus(t *testing.T) {
	err := NewEmbedder().Prepare(nil)
	assert.Error(t, err)
}

func TestEmbedRequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed("稳赚不赔")
	assert.Error(t, err)
}

func TestEmbedDeterministic(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	a, err := e.Embed("这款产品稳赚不赔")
	require.NoError(t, err)
	b, err := e.Embed("这款产品稳赚不赔")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, e.Dimension())
}

func TestHanTextProducesSignal(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	vec, err := e.Embed("稳赚不赔的产品")
	require.NoError(t, err)
	nonZero := false
	for _, v := range vec {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "Han bigrams should hit corpus vocabulary")
}

func TestSimilarTextScoresHigherThanUnrelated(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	query, err := e.Embed("稳赚不赔 保本")
	require.NoError(t, err)
	promise, err := e.Embed(corpus[0])
	require.NoError(t, err)
	abuse, err := e.Embed(corpus[2])
	require.NoError(t, err)

	assert.Greater(t, dot(query, promise), dot(query, abuse))
}

func TestHanBigrams(t *testing.T) {
	assert.Equal(t, []string{"稳赚", "赚不", "不赔"}, hanBigrams("稳赚不赔"))
	assert.Equal(t, []string{"赚"}, hanBigrams("赚"))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
