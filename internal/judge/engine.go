package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"compliance/internal/domain"
)

// ErrModelInvocation wraps failures of the underlying completion call. The
// engine never retries; retry policy belongs to the caller.
var ErrModelInvocation = errors.New("model invocation failed")

// promptTemplate fixes the classification contract: the model must answer
// with the labeled lines the parser understands and nothing else.
const promptTemplate = `你是一名金融合规审核员。请严格根据以下规则判断用户聊天内容是否违规。

相关规则：
%s

聊天内容：
%s

你必须且只能按以下格式输出，不要任何其他文字：

是否违规：是/否
触发事件：[事件名称，若不违规则写“无”；多个事件用顿号分隔]
理由：[简明理由，引用规则中的关键词或逻辑]
置信度：高/中/低
`

// Engine assembles the judgment prompt from retrieved rules and invokes the
// completion service.
type Engine struct {
	completer domain.Completer
}

// NewEngine creates a judgment engine over the given completer.
func NewEngine(completer domain.Completer) *Engine {
	return &Engine{completer: completer}
}

// Invoke builds the prompt for the input text plus retrieved rules and
// returns the raw model reply. The context bounds the call; on failure the
// error wraps ErrModelInvocation.
func (e *Engine) Invoke(ctx context.Context, text string, retrieved []domain.ScoredDocument) (string, error) {
	prompt := BuildPrompt(text, retrieved)
	out, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}
	return strings.TrimSpace(out), nil
}

// BuildPrompt renders the fixed instruction template around the retrieved
// rule text and the input utterance.
func BuildPrompt(text string, retrieved []domain.ScoredDocument) string {
	var rules strings.Builder
	for i, doc := range retrieved {
		if i > 0 {
			rules.WriteString("\n\n")
		}
		rules.WriteString(doc.Document.Content)
	}
	return fmt.Sprintf(promptTemplate, rules.String(), text)
}
