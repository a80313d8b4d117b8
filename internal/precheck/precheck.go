package precheck

import (
	"strings"

	"compliance/internal/domain"
)

// Filter recognizes recurring non-violation shapes in utterances using fixed
// substring pattern families and an ordered decision table. Evaluate is a
// pure function: no model or index access, identical text always yields an
// identical signal. False negatives are the costlier failure mode here, so
// only high-confidence outcomes are eligible to bypass the model.
type Filter struct {
	table []tableRow
}

// Marker families. Substring containment is deliberate: the utterances are
// short chat messages and these phrases are unambiguous in context.
var (
	historicalMarkers = []string{
		"之前", "昨天", "昨日", "此前", "上周", "上月", "上个月", "月初", "当时", "回顾", "历史业绩", "战绩",
	}
	pastTenseMarkers = []string{
		"已经", "赚了", "涨了", "盈利了", "获利了", "翻了", "跑赢了",
	}
	riskDisclaimerMarkers = []string{
		"投资有风险", "入市需谨慎", "历史业绩不代表未来", "不代表未来收益", "不构成投资建议", "风险提示", "收益不保证", "不能保证",
	}
	officialChannelMarkers = []string{
		"官方微信", "官方客服", "服务号", "公众号", "官方渠道", "官方平台",
	}
	customerInquiryMarkers = []string{
		"客户问", "客户咨询", "客户：", "您问", "我们回答", "回答：",
	}
	servicePartyMarkers = []string{
		"我们承诺", "老师带", "跟上老师", "加入我们", "马上加入", "加微信", "加我", "私信我",
	}
	marketingMarkers = []string{
		"福利", "名额", "机会", "马上", "立即", "限时", "加入",
	}
	// Absolute promissory terms veto the historical exemptions: past-tense
	// phrasing does not excuse a guarantee.
	promissoryAbsolutes = []string{
		"保证", "稳赚", "保底", "包赚", "必涨", "翻倍", "无风险", "零风险", "承诺收益", "稳赚不赔",
	}
)

// tableRow is one entry of the priority cascade; the first matching row wins.
type tableRow struct {
	matches    func(sig domain.PreCheckSignal, promissory bool) bool
	confidence domain.Confidence
	reason     string
}

// New creates a Filter with the fixed decision table.
func New() *Filter {
	return &Filter{
		table: []tableRow{
			{
				matches: func(sig domain.PreCheckSignal, promissory bool) bool {
					return sig.IsPerformanceReview && sig.UsesPastTense && !promissory
				},
				confidence: domain.ConfidenceHigh,
				reason:     "历史业绩回顾，非未来收益承诺",
			},
			{
				matches: func(sig domain.PreCheckSignal, promissory bool) bool {
					return sig.IsPerformanceReview && sig.HasRiskDisclaimer && !promissory
				},
				confidence: domain.ConfidenceHigh,
				reason:     "业绩展示且含风险提示",
			},
			{
				// Promissory terms quoted inside a customer question are the
				// question, not a promise, so this row carries no veto.
				matches: func(sig domain.PreCheckSignal, promissory bool) bool {
					return sig.IsCustomerInquiry && !sig.IsServiceParty
				},
				confidence: domain.ConfidenceHigh,
				reason:     "回应客户询问，非主动承诺",
			},
			{
				// Only when the channel mention stands alone: a
				// promotional pitch or a guarantee that happens to name an
				// official channel still needs full analysis.
				matches: func(sig domain.PreCheckSignal, promissory bool) bool {
					return sig.IsOfficialChannel && !sig.IsServiceParty &&
						!sig.IsMarketingContext && !promissory
				},
				confidence: domain.ConfidenceMedium,
				reason:     "提及官方渠道",
			},
		},
	}
}

// Evaluate matches text against the pattern families and walks the decision
// table. Rows that do not match fall through to a low-confidence signal
// requesting full analysis.
func (f *Filter) Evaluate(text string) domain.PreCheckSignal {
	sig := domain.PreCheckSignal{
		IsPerformanceReview: containsAny(text, historicalMarkers),
		UsesPastTense:       containsAny(text, pastTenseMarkers),
		HasRiskDisclaimer:   containsAny(text, riskDisclaimerMarkers),
		IsOfficialChannel:   containsAny(text, officialChannelMarkers),
		IsCustomerInquiry:   containsAny(text, customerInquiryMarkers),
		IsServiceParty:      containsAny(text, servicePartyMarkers),
		IsMarketingContext:  containsAny(text, marketingMarkers),
	}
	promissory := containsAny(text, promissoryAbsolutes)
	for _, row := range f.table {
		if row.matches(sig, promissory) {
			sig.Confidence = row.confidence
			sig.SuggestedReason = row.reason
			return sig
		}
	}
	sig.Confidence = domain.ConfidenceLow
	sig.SuggestedReason = "需要完整分析"
	return sig
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
