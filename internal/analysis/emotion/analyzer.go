package emotion

import "strings"

// Label 은 감정 분류 결과 라벨. 닫힌 어휘 집합이며 LLM 감정 분류기와
// 같은 라벨을 쓴다.
type Label string

const (
	Anger   Label = "anger"
	Sad     Label = "sad"
	Fear    Label = "fear"
	Neutral Label = "neutral"
)

// Known reports whether raw names a member of the label vocabulary.
func Known(raw string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(raw))) {
	case Anger:
		return Anger, true
	case Sad:
		return Sad, true
	case Fear:
		return Fear, true
	case Neutral:
		return Neutral, true
	default:
		return "", false
	}
}

// Decision 은 휴리스틱 감정 분석 결과.
type Decision struct {
	Label Label
	Score float64 // intensity in [0,1]
}

var keywordBuckets = map[Label][]string{
	Anger: {
		"화가", "화나", "짜증", "열받", "분노", "어이가 없", "말이 됩니까", "장난하", "당장",
		"환장", "빡치", "최악", "angry", "furious", "rage", "annoyed", "unacceptable",
	},
	Sad: {
		"슬퍼", "슬프", "속상", "우울", "눈물", "서운", "실망", "허탈", "마음이 아프",
		"sad", "disappointed", "upset", "heartbroken", "depressed",
	},
	Fear: {
		"불안", "걱정", "무서", "두려", "겁나", "혹시 잘못", "큰일", "조마조마",
		"scared", "afraid", "worried", "anxious", "nervous",
	},
}

// Keyword hits carry a fixed weight; exclamation marks amplify whatever
// emotion is already dominant.
const (
	keywordWeight     = 0.3
	exclamationWeight = 0.1
	maxScore          = 1.0
)

// Analyze 는 키워드 기반으로 고객 발화의 감정과 강도를 추정한다.
// LLM 분류기를 사용할 수 없을 때의 폴백 경로이며 항상 결과를 반환한다.
func Analyze(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Label: Neutral, Score: 0.5}
	}

	scores := make(map[Label]float64)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, strings.ToLower(word)) {
				scores[label] += keywordWeight
			}
		}
	}

	bestLabel := Neutral
	bestScore := 0.0
	for label, s := range scores {
		if s > bestScore {
			bestScore = s
			bestLabel = label
		}
	}

	if bestScore == 0 {
		return Decision{Label: Neutral, Score: 0.5}
	}

	bestScore += float64(strings.Count(text, "!")) * exclamationWeight
	if bestScore > maxScore {
		bestScore = maxScore
	}

	return Decision{Label: bestLabel, Score: bestScore}
}
