package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/seoyun-dev/carecall/backend/internal/llm"
	"github.com/seoyun-dev/carecall/backend/internal/model/call"
	"github.com/seoyun-dev/carecall/backend/internal/model/policy"
	"github.com/seoyun-dev/carecall/backend/internal/planner"
	"github.com/seoyun-dev/carecall/backend/internal/retrieval"
	emotionservice "github.com/seoyun-dev/carecall/backend/internal/service/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/service/guide"
	"github.com/seoyun-dev/carecall/backend/internal/service/intent"
	"github.com/seoyun-dev/carecall/backend/internal/session"
)

func stub(content string, err error) llm.Invoker {
	return llm.InvokerFunc(func(_ context.Context, _ map[string]any) (*schema.Message, error) {
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage(content, nil), nil
	})
}

type deps struct {
	emotionContent string
	emotionErr     error
	intentContent  string
	intentErr      error
}

func newTestService(t *testing.T, d deps) *Service {
	t.Helper()

	emotionSvc := emotionservice.NewServiceWithInvoker(stub(d.emotionContent, d.emotionErr))
	classifier := intent.NewClassifierWithInvoker(stub(d.intentContent, d.intentErr))
	store := session.NewMemoryStore(3, 16)
	plannerSvc := planner.NewRulePlanner()

	retriever, err := retrieval.NewRetriever(context.Background(), policy.NewMemoryStore(policy.Seed()), nil, retrieval.Options{
		TopK:         4,
		ChunkSize:    500,
		ChunkOverlap: 100,
	})
	if err != nil {
		t.Fatalf("failed to build retriever: %v", err)
	}

	composer := guide.NewComposerWithInvokers(
		stub("불편을 드려 죄송합니다. 바로 확인해 드리겠습니다.", nil),
		stub("잠시 호흡을 고르고 차분히 응대하세요.", nil),
	)

	return NewService(emotionSvc, classifier, store, plannerSvc, retriever, composer)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	svc := newTestService(t, deps{
		emotionContent: `{"emotion_label": "anger", "emotion_score": 0.9}`,
		intentContent:  "refund-request",
	})

	result, err := svc.Analyze(context.Background(), call.Input{
		SessionID: "call-1",
		Text:      "환불 언제 해주실 거예요? 너무 화가 나요!",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Intent != "refund-request" {
		t.Fatalf("expected refund-request, got %s", result.Intent)
	}
	if result.EmotionLabel != "anger" {
		t.Fatalf("expected anger, got %s", result.EmotionLabel)
	}
	if math.Abs(result.EmotionScore-0.9) > 1e-9 {
		t.Fatalf("expected smoothed 0.9 on first utterance, got %f", result.EmotionScore)
	}
	if result.CustomerResponse == "" {
		t.Fatalf("expected customer response")
	}
	if !strings.Contains(result.CounselorNote, "[응대 전략]") {
		t.Fatalf("counselor note missing strategy: %q", result.CounselorNote)
	}
	// anger 0.9 → calm 행동이 계획되어 안정 피드백이 붙는다.
	if !strings.Contains(result.CounselorNote, "[심리 안정 피드백]") {
		t.Fatalf("counselor note missing calm feedback: %q", result.CounselorNote)
	}
}

func TestAnalyzeSmoothsAcrossTurns(t *testing.T) {
	svc := newTestService(t, deps{intentContent: "general-inquiry"})
	ctx := context.Background()

	scores := []float64{0.2, 0.8, 0.5}
	var last call.Guide
	for _, score := range scores {
		s := score
		result, err := svc.Analyze(ctx, call.Input{
			SessionID:    "call-2",
			Text:         "문의드립니다",
			EmotionLabel: "neutral",
			EmotionScore: &s,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		last = result
	}

	want := (0.2 + 0.8 + 0.5) / 3
	if math.Abs(last.EmotionScore-want) > 1e-9 {
		t.Fatalf("expected smoothed %f, got %f", want, last.EmotionScore)
	}
}

func TestAnalyzeUsesProvidedEmotion(t *testing.T) {
	// 감정이 요청에 실려 오면 분류 서비스는 호출되지 않아야 한다.
	svc := newTestService(t, deps{emotionErr: errors.New("classifier must not be called")})
	score := 0.4

	result, err := svc.Analyze(context.Background(), call.Input{
		SessionID:    "call-3",
		Text:         "그냥 궁금해서요",
		EmotionLabel: "sad",
		EmotionScore: &score,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EmotionLabel != "sad" {
		t.Fatalf("expected sad, got %s", result.EmotionLabel)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	svc := newTestService(t, deps{intentContent: "general-inquiry"})
	ctx := context.Background()
	score := 0.5
	bad := 1.5

	cases := []struct {
		name  string
		input call.Input
	}{
		{"empty session", call.Input{Text: "문의"}},
		{"blank session", call.Input{SessionID: "  ", Text: "문의"}},
		{"empty text", call.Input{SessionID: "s"}},
		{"unknown emotion label", call.Input{SessionID: "s", Text: "문의", EmotionLabel: "joy", EmotionScore: &score}},
		{"score out of range", call.Input{SessionID: "s", Text: "문의", EmotionLabel: "sad", EmotionScore: &bad}},
	}

	for _, tc := range cases {
		result, err := svc.Analyze(ctx, tc.input)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}

		var stageError *StageError
		if !errors.As(err, &stageError) {
			t.Fatalf("%s: expected StageError, got %v", tc.name, err)
		}
		if stageError.Stage != StageValidate {
			t.Fatalf("%s: expected validate stage, got %s", tc.name, stageError.Stage)
		}
		if result != (call.Guide{}) {
			t.Fatalf("%s: expected empty result on failure", tc.name)
		}
	}
}

func TestAnalyzeIntentFailureIsStageTagged(t *testing.T) {
	svc := newTestService(t, deps{
		emotionContent: `{"emotion_label": "neutral", "emotion_score": 0.2}`,
		intentErr:      errors.New("upstream refused"),
	})

	result, err := svc.Analyze(context.Background(), call.Input{SessionID: "call-4", Text: "문의"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var stageError *StageError
	if !errors.As(err, &stageError) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageError.Stage != StageIntent {
		t.Fatalf("expected intent stage, got %s", stageError.Stage)
	}
	if result != (call.Guide{}) {
		t.Fatalf("expected no partial result, got %+v", result)
	}
}

func TestAnalyzeStreamEmitsStages(t *testing.T) {
	svc := newTestService(t, deps{
		emotionContent: `{"emotion_label": "anger", "emotion_score": 0.9}`,
		intentContent:  "refund-request",
	})

	var stages []string
	_, err := svc.AnalyzeStream(context.Background(), call.Input{
		SessionID: "call-5",
		Text:      "너무 화가 나요",
	}, func(stage string, _ any) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{StageEmotion, StageIntent, "plan"}
	if len(stages) != len(want) {
		t.Fatalf("expected %d emitted stages, got %v", len(want), stages)
	}
	for i, w := range want {
		if stages[i] != w {
			t.Fatalf("stage %d: expected %s, got %s", i, w, stages[i])
		}
	}
}

func TestResetSession(t *testing.T) {
	svc := newTestService(t, deps{intentContent: "general-inquiry"})
	ctx := context.Background()
	high := 1.0

	if _, err := svc.Analyze(ctx, call.Input{SessionID: "call-6", Text: "문의", EmotionLabel: "anger", EmotionScore: &high}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ResetSession(ctx, "call-6"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	low := 0.0
	result, err := svc.Analyze(ctx, call.Input{SessionID: "call-6", Text: "문의", EmotionLabel: "anger", EmotionScore: &low})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EmotionScore != 0.0 {
		t.Fatalf("expected raw score after reset, got %f", result.EmotionScore)
	}
}

func TestResetSessionRequiresID(t *testing.T) {
	svc := newTestService(t, deps{})

	err := svc.ResetSession(context.Background(), "")
	if !errors.Is(err, session.ErrSessionIDRequired) {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}
}
