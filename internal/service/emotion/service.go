// Package emotion 은 발화의 감정 라벨과 강도를 판단한다. 대형 언어 모델
// 분류가 기본이고, 호출/파싱 실패 시 키워드 휴리스틱으로 내려간다.
package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"

	analysis "github.com/seoyun-dev/carecall/backend/internal/analysis/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/llm"
)

// Reading 은 한 발화에 대한 감정 관측값. 생성된 뒤에는 바뀌지 않는다.
type Reading struct {
	Label analysis.Label
	Score float64
}

// Service 는 감정 분류 서비스. invoker 가 없으면 휴리스틱만 사용한다.
type Service struct {
	invoker  llm.Invoker
	fallback func(text string) analysis.Decision
}

// NewService 는 채팅 모델 위에 분류 체인을 컴파일한다. chatModel 이 nil 이면
// 휴리스틱 전용 서비스가 된다.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	svc := &Service{fallback: analysis.Analyze}
	if chatModel == nil {
		return svc, nil
	}

	invoker, err := llm.NewChain(ctx, chatModel, emotionSystemPrompt, emotionUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build emotion classifier chain: %w", err)
	}

	svc.invoker = invoker
	return svc, nil
}

// NewServiceWithInvoker 는 이미 구성된 Invoker(테스트 스텁 포함)를 쓴다.
func NewServiceWithInvoker(invoker llm.Invoker) *Service {
	return &Service{invoker: invoker, fallback: analysis.Analyze}
}

// Classify 는 발화의 감정을 판단한다. 항상 어휘 집합의 라벨과 [0,1] 점수를
// 돌려주며, 모델 출력이 깨져도 호출자에게 오류를 전파하지 않는다.
func (s *Service) Classify(ctx context.Context, text string) Reading {
	if s.invoker == nil {
		return s.heuristic(text)
	}

	msg, err := s.invoker.Invoke(ctx, map[string]any{"text": text})
	if err != nil {
		log.Printf("[emotion] classifier invoke failed, using heuristic: %v", err)
		return s.heuristic(text)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.heuristic(text)
	}

	reading, err := parseClassifierOutput(msg.Content)
	if err != nil {
		log.Printf("[emotion] classifier output parse failed, using heuristic: %v", err)
		return s.heuristic(text)
	}

	return reading
}

func (s *Service) heuristic(text string) Reading {
	decision := s.fallback(text)
	return Reading{Label: decision.Label, Score: clampScore(decision.Score)}
}

type classifierPayload struct {
	EmotionLabel string  `json:"emotion_label"`
	EmotionScore float64 `json:"emotion_score"`
}

// parseClassifierOutput 은 모델이 돌려준 JSON 을 검증한다.
func parseClassifierOutput(content string) (Reading, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return Reading{}, err
	}

	payload := classifierPayload{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Reading{}, err
	}

	label, ok := analysis.Known(payload.EmotionLabel)
	if !ok {
		return Reading{}, fmt.Errorf("unknown emotion label %q", payload.EmotionLabel)
	}

	return Reading{Label: label, Score: clampScore(payload.EmotionScore)}, nil
}

// clampScore 는 분류기 점수를 [0,1] 로 보정한다. smoothing 저장소는 범위를
// 검증만 하므로 보정은 분류기 경계에서 끝나야 한다.
func clampScore(val float64) float64 {
	if val < 0 {
		return 0
	}
	if val > 1 {
		return 1
	}
	return val
}

const emotionSystemPrompt = "당신은 콜센터 고객 발화를 감정 분석하는 AI입니다. " +
	"사용자의 한국어 발화를 보고 다음 중 하나의 감정을 판단하세요: ['anger', 'sad', 'fear', 'neutral'].\n\n" +
	"그리고 감정 강도를 0.0부터 1.0 사이의 실수로 표현하세요.\n\n" +
	"반드시 아래 JSON 형식 하나만 출력하세요. 추가 설명은 쓰지 마세요.\n" +
	`{{ "emotion_label": "<감정라벨>", "emotion_score": <0.0~1.0 숫자> }}`

const emotionUserPrompt = "고객 발화: {text}"
