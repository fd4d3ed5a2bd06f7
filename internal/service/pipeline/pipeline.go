// Package pipeline 은 발화 하나를 고객 응대문과 상담사 노트로 바꾸는
// 오케스트레이터다. 단계 순서와 실패 지점 식별만 책임지고, 판단은 전부
// 하위 컴포넌트에 위임한다.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	analysis "github.com/seoyun-dev/carecall/backend/internal/analysis/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/model/call"
	"github.com/seoyun-dev/carecall/backend/internal/planner"
	"github.com/seoyun-dev/carecall/backend/internal/retrieval"
	"github.com/seoyun-dev/carecall/backend/internal/service/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/service/guide"
	"github.com/seoyun-dev/carecall/backend/internal/service/intent"
	"github.com/seoyun-dev/carecall/backend/internal/session"
	"github.com/seoyun-dev/carecall/backend/internal/strategy"
)

// 파이프라인 단계 이름. 실패 응답에 어느 단계가 실패했는지 실린다.
const (
	StageValidate  = "validate"
	StageEmotion   = "emotion"
	StageIntent    = "intent"
	StageRetrieval = "retrieval"
	StageSmoothing = "smoothing"
	StageCompose   = "compose"
)

var (
	// ErrTextRequired 는 빈 발화 입력.
	ErrTextRequired = errors.New("utterance text is required")
	// ErrUnknownEmotionLabel 은 요청이 어휘 밖 감정 라벨을 실어 보낸 경우.
	ErrUnknownEmotionLabel = errors.New("unknown emotion label")
)

// StageError 는 실패한 단계를 식별한다. 부분 결과는 절대 반환하지 않는다.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Emitter 는 스트리밍 핸들러가 중간 단계 결과를 내보낼 때 쓴다.
type Emitter func(stage string, payload any)

// Service 는 요청 단위 파이프라인. 세션 smoothing 저장소만 요청 간에
// 공유되는 상태다.
type Service struct {
	emotionSvc *emotion.Service
	classifier *intent.Classifier
	store      session.Store
	planner    *planner.Planner
	retriever  *retrieval.Retriever
	composer   *guide.Composer
}

// NewService 는 구성 요소를 주입받아 파이프라인을 만든다.
func NewService(
	emotionSvc *emotion.Service,
	classifier *intent.Classifier,
	store session.Store,
	plannerSvc *planner.Planner,
	retriever *retrieval.Retriever,
	composer *guide.Composer,
) *Service {
	return &Service{
		emotionSvc: emotionSvc,
		classifier: classifier,
		store:      store,
		planner:    plannerSvc,
		retriever:  retriever,
		composer:   composer,
	}
}

// Analyze 는 한 발화를 끝까지 처리해 결과 묶음을 돌려준다.
func (s *Service) Analyze(ctx context.Context, in call.Input) (call.Guide, error) {
	return s.analyze(ctx, in, nil)
}

// AnalyzeStream 은 Analyze 와 같되 각 단계 결과를 emit 으로 내보낸다.
func (s *Service) AnalyzeStream(ctx context.Context, in call.Input, emit Emitter) (call.Guide, error) {
	return s.analyze(ctx, in, emit)
}

func (s *Service) analyze(ctx context.Context, in call.Input, emit Emitter) (call.Guide, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return call.Guide{}, stageErr(StageValidate, session.ErrSessionIDRequired)
	}
	if strings.TrimSpace(in.Text) == "" {
		return call.Guide{}, stageErr(StageValidate, ErrTextRequired)
	}

	// 1) 감정 관측값 확보: 요청에 실려 오지 않았으면 분류 서비스에 묻는다.
	reading, err := s.resolveEmotion(ctx, in)
	if err != nil {
		return call.Guide{}, err
	}
	send(emit, StageEmotion, map[string]any{"label": reading.Label, "score": reading.Score})

	// 2) 의도 분류와 정책 검색은 서로 독립이라 동시에 실행한다.
	//    검색 결과는 계획이 policy 를 포함할 때만 쓰인다.
	var intentLabel intent.Label
	var chunks []retrieval.Chunk

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		label, err := s.classifier.Classify(gctx, in.Text)
		if err != nil {
			return stageErr(StageIntent, err)
		}
		intentLabel = label
		return nil
	})
	g.Go(func() error {
		found, err := s.retriever.Retrieve(gctx, in.Text)
		if err != nil {
			return stageErr(StageRetrieval, err)
		}
		chunks = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return call.Guide{}, err
	}
	send(emit, StageIntent, map[string]any{"intent": intentLabel})

	// 3) 세션 smoothing. 같은 세션의 동시 요청은 저장소가 직렬화한다.
	smoothed, err := s.store.Append(ctx, in.SessionID, reading.Score)
	if err != nil {
		return call.Guide{}, stageErr(StageSmoothing, err)
	}

	// 4) 전략 결정과 행동 계획. 계획은 이후 부수 효과 실행의 순서 장벽이다.
	bundle := strategy.Resolve(reading.Label, smoothed)
	decision := s.planner.Plan(ctx, intentLabel, reading.Label, smoothed)
	if decision.Fallback {
		log.Printf("[pipeline] planner fell back for session=%s: %s", in.SessionID, decision.Reason)
	}
	send(emit, "plan", map[string]any{"actions": decision.Actions, "fallback": decision.Fallback})

	// 5) 합성.
	output, err := s.composer.Compose(ctx, guide.Input{
		Utterance: in.Text,
		Intent:    intentLabel,
		Label:     reading.Label,
		Score:     smoothed,
		Bundle:    bundle,
		Plan:      decision,
		Chunks:    chunks,
	})
	if err != nil {
		return call.Guide{}, stageErr(StageCompose, err)
	}

	return call.Guide{
		Intent:           string(intentLabel),
		EmotionLabel:     string(reading.Label),
		EmotionScore:     smoothed,
		CustomerResponse: output.CustomerText,
		CounselorNote:    output.CounselorNote,
	}, nil
}

// ResetSession 은 세션의 smoothing 이력을 버린다.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if err := s.store.Reset(ctx, sessionID); err != nil {
		return stageErr(StageSmoothing, err)
	}
	return nil
}

func (s *Service) resolveEmotion(ctx context.Context, in call.Input) (emotion.Reading, error) {
	if in.EmotionLabel != "" && in.EmotionScore != nil {
		label, ok := analysis.Known(in.EmotionLabel)
		if !ok {
			return emotion.Reading{}, stageErr(StageValidate, fmt.Errorf("%w: %q", ErrUnknownEmotionLabel, in.EmotionLabel))
		}
		if *in.EmotionScore < 0 || *in.EmotionScore > 1 {
			return emotion.Reading{}, stageErr(StageValidate, session.ErrScoreOutOfRange)
		}
		return emotion.Reading{Label: label, Score: *in.EmotionScore}, nil
	}

	return s.emotionSvc.Classify(ctx, in.Text), nil
}

func send(emit Emitter, stage string, payload any) {
	if emit != nil {
		emit(stage, payload)
	}
}
