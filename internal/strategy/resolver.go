// Package strategy 는 (감정 라벨, 강도 구간) → 응대 전략 조회 테이블이다.
// 전략 문구는 생성 프롬프트에 그대로 들어가지만, 결정 로직 자체는
// 데이터 테이블로 분리되어 생성 서비스와 무관하게 검증할 수 있다.
package strategy

import "github.com/seoyun-dev/carecall/backend/internal/analysis/emotion"

// Tier 는 smoothing 된 감정 강도를 세 구간으로 나눈 것.
type Tier string

const (
	Low    Tier = "low"
	Medium Tier = "medium"
	High   Tier = "high"
)

// 경계값은 위 구간에 속한다. 정확히 0.34 는 medium, 0.67 은 high.
const (
	mediumThreshold = 0.34
	highThreshold   = 0.67
)

// TierFor 는 강도 점수를 구간으로 변환한다.
func TierFor(score float64) Tier {
	switch {
	case score < mediumThreshold:
		return Low
	case score < highThreshold:
		return Medium
	default:
		return High
	}
}

// Bundle 은 기본 전략과 구간별 보강 문구의 묶음.
type Bundle struct {
	Base       string
	Refinement string
}

// Guidance 는 상담사 노트에 들어갈 한 줄 요약을 돌려준다.
func (b Bundle) Guidance() string {
	if b.Refinement == "" {
		return b.Base
	}
	return b.Base + " " + b.Refinement
}

const fallbackStrategy = "고객의 감정을 먼저 인정하고, 차분하고 공감적인 어조로 필요한 정보를 안내하세요."

var baseStrategies = map[emotion.Label]string{
	emotion.Anger:   "고객의 불편에 먼저 사과하고, 변명 없이 해결 절차를 구체적으로 안내하세요.",
	emotion.Sad:     "고객의 감정을 공감적으로 다독인 뒤, 도움이 될 수 있는 선택지를 차분히 제시하세요.",
	emotion.Fear:    "고객의 불안 요인을 명확히 짚어 안심시키고, 확실한 사실만 단계적으로 안내하세요.",
	emotion.Neutral: "정중하고 간결하게 핵심 정보를 안내하고, 추가로 도울 일이 있는지 확인하세요.",
}

var tierRefinements = map[emotion.Label]map[Tier]string{
	emotion.Anger: {
		Low:    "가벼운 유감 표현으로 충분하며, 빠른 사실 안내에 집중하세요.",
		Medium: "사과를 명시적으로 표현하고, 처리 기한을 숫자로 약속하세요.",
		High:   "최우선 처리를 약속하고, 책임자 확인 등 즉각적인 조치를 제시하세요.",
	},
	emotion.Sad: {
		Low:    "공감 한 문장 후 바로 실질적인 안내로 넘어가세요.",
		Medium: "고객의 상황을 요약해 되짚어 주며 이해받고 있다는 느낌을 주세요.",
		High:   "충분한 공감을 표현한 뒤, 고객이 선택할 수 있는 가장 부담 없는 방법을 먼저 제안하세요.",
	},
	emotion.Fear: {
		Low:    "걱정할 필요가 없는 이유를 한 문장으로 짚어 주세요.",
		Medium: "현재 상태와 다음 단계를 순서대로 명확히 안내하세요.",
		High:   "즉시 확인 가능한 보호 조치를 안내하고, 후속 연락 일정을 약속하세요.",
	},
}

// Resolve 는 (라벨, smoothing 점수) 로 전략 묶음을 찾는다. 순수 함수이며
// 실패하지 않는다. 모르는 라벨은 공통 공감 전략으로, 보강 테이블에 없는
// 라벨은 빈 보강으로 처리한다.
func Resolve(label emotion.Label, score float64) Bundle {
	base, ok := baseStrategies[label]
	if !ok {
		base = fallbackStrategy
	}

	bundle := Bundle{Base: base}
	if refinements, ok := tierRefinements[label]; ok {
		bundle.Refinement = refinements[TierFor(score)]
	}
	return bundle
}
