package judge

import (
	"strings"

	"compliance/internal/domain"
)

// noneSentinel is what the prompt asks the model to emit when no event fired.
const noneSentinel = "无"

const unparsedReason = "未能解析模型响应"

// ParseVerdict extracts a typed verdict from the model's semi-structured
// reply. The scan is line-oriented and tolerant: labels may appear in any
// order among extraneous lines, the first occurrence of each label wins, and
// both full-width and ASCII colons are accepted. Parsing never fails; a reply
// with no recognizable labels degrades to a non-violation verdict carrying an
// explanatory reason.
func ParseVerdict(raw string) domain.Verdict {
	v := domain.Verdict{
		Reason:      unparsedReason,
		Confidence:  domain.ConfidenceMedium,
		RawResponse: raw,
	}
	var sawViolation, sawEvents, sawReason, sawConfidence, sawAny bool
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case !sawViolation && hasLabel(line, "是否违规"):
			v.IsViolation = isAffirmative(labelValue(line, "是否违规"))
			sawViolation, sawAny = true, true
		case !sawEvents && hasLabel(line, "触发事件"):
			v.TriggeredEvents = parseEvents(labelValue(line, "触发事件"))
			sawEvents, sawAny = true, true
		case !sawReason && hasLabel(line, "理由"):
			if reason := labelValue(line, "理由"); reason != "" {
				v.Reason = reason
			}
			sawReason, sawAny = true, true
		case !sawConfidence && hasLabel(line, "置信度"):
			v.Confidence = parseConfidence(labelValue(line, "置信度"))
			sawConfidence, sawAny = true, true
		}
	}
	if !sawAny {
		v.IsViolation = false
		v.Reason = unparsedReason
		v.Confidence = domain.ConfidenceLow
	}
	return v
}

func hasLabel(line, label string) bool {
	if !strings.HasPrefix(line, label) {
		return false
	}
	rest := line[len(label):]
	return strings.HasPrefix(rest, "：") || strings.HasPrefix(rest, ":")
}

func labelValue(line, label string) string {
	rest := line[len(label):]
	rest = strings.TrimPrefix(rest, "：")
	rest = strings.TrimPrefix(rest, ":")
	return strings.Trim(strings.TrimSpace(rest), "[]【】")
}

// isAffirmative treats 是/yes as a violation marker but does not let a
// leading negation ("不是"/"否") read as affirmative.
func isAffirmative(value string) bool {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "yes") {
		return true
	}
	return strings.Contains(value, "是") && !strings.Contains(value, "不是")
}

func parseEvents(value string) []string {
	if value == "" || value == noneSentinel || strings.EqualFold(value, "none") {
		return nil
	}
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == '、' || r == '，' || r == ',' || r == ';' || r == '；'
	})
	var events []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || f == noneSentinel {
			continue
		}
		events = append(events, f)
	}
	return events
}

func parseConfidence(value string) domain.Confidence {
	lower := strings.ToLower(value)
	switch {
	case strings.Contains(value, "高") || strings.Contains(lower, "high"):
		return domain.ConfidenceHigh
	case strings.Contains(value, "低") || strings.Contains(lower, "low"):
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}
