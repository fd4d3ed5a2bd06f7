// Package planner 는 한 요청에서 실행할 지원 행동 집합을 결정한다.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/seoyun-dev/carecall/backend/internal/analysis/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/llm"
	"github.com/seoyun-dev/carecall/backend/internal/service/intent"
)

// Action 은 지원 행동 어휘의 원소.
type Action string

const (
	// Calm 은 상담사용 심리 안정 팁 생성.
	Calm Action = "calm"
	// Policy 는 정책 문서 컨텍스트 주입.
	Policy Action = "policy"
	// Basic 은 기본 고객 응대문 생성. 다른 행동과 무관하게 항상 실행된다.
	Basic Action = "basic"
)

// Decision 은 계획 결과. 외부 위임 출력이 깨졌을 때는 Fallback 이 true 가
// 되고 Reason 에 사유가 남는다. 계획 실패는 복구 가능하며 치명적이지 않다.
type Decision struct {
	Actions  []Action
	Fallback bool
	Reason   string
}

// Has 는 결정에 해당 행동이 포함됐는지 여부.
func (d Decision) Has(action Action) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// calm 행동이 필요한 감정 강도 하한.
const calmThreshold = 0.6

// fallbackActions 는 위임 출력이 깨졌을 때 대신 쓰는 고정 계획.
func fallbackActions() []Action {
	return []Action{Policy, Basic}
}

// ruleActions 는 결정적 규칙 테이블이다. 반환 계획은 비어 있지 않고
// calm → policy → basic 순서를 유지한다.
func ruleActions(intentLabel intent.Label, label emotion.Label, score float64) []Action {
	actions := make([]Action, 0, 3)

	switch label {
	case emotion.Anger, emotion.Fear, emotion.Sad:
		if score >= calmThreshold {
			actions = append(actions, Calm)
		}
	}

	switch intentLabel {
	case intent.RefundRequest, intent.DamageReport, intent.ShippingInquiry:
		actions = append(actions, Policy)
	}

	return append(actions, Basic)
}

// Planner 는 계획을 결정한다. invoker 가 없으면 규칙 테이블만 사용한다.
type Planner struct {
	invoker llm.Invoker
}

// NewRulePlanner 는 순수 규칙 기반 플래너를 만든다.
func NewRulePlanner() *Planner {
	return &Planner{}
}

// NewLLMPlanner 는 외부 추론 서비스에 계획을 위임하는 플래너를 만든다.
// 위임 출력이 깨지면 고정 fallback 계획으로 복구한다.
func NewLLMPlanner(ctx context.Context, chatModel model.ChatModel) (*Planner, error) {
	invoker, err := llm.NewChain(ctx, chatModel, plannerSystemPrompt, plannerUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build planner chain: %w", err)
	}
	return &Planner{invoker: invoker}, nil
}

// NewLLMPlannerWithInvoker 는 이미 구성된 Invoker(테스트 스텁 포함)를 쓴다.
func NewLLMPlannerWithInvoker(invoker llm.Invoker) *Planner {
	return &Planner{invoker: invoker}
}

// Plan 은 (의도, 감정, smoothing 점수) 에 대한 행동 계획을 돌려준다.
// 어떤 경로로도 빈 계획은 나오지 않는다.
func (p *Planner) Plan(ctx context.Context, intentLabel intent.Label, label emotion.Label, score float64) Decision {
	if p.invoker == nil {
		return Decision{Actions: ruleActions(intentLabel, label, score)}
	}

	msg, err := p.invoker.Invoke(ctx, map[string]any{
		"intent":        string(intentLabel),
		"emotion_label": string(label),
		"emotion_score": fmt.Sprintf("%.2f", score),
	})
	if err != nil {
		log.Printf("[planner] delegation failed, using fallback plan: %v", err)
		return Decision{Actions: fallbackActions(), Fallback: true, Reason: err.Error()}
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return Decision{Actions: fallbackActions(), Fallback: true, Reason: "empty planner output"}
	}

	actions, err := parsePlannerOutput(msg.Content)
	if err != nil {
		log.Printf("[planner] malformed planner output, using fallback plan: %v", err)
		return Decision{Actions: fallbackActions(), Fallback: true, Reason: err.Error()}
	}

	return Decision{Actions: actions}
}

type plannerPayload struct {
	Actions []string `json:"actions"`
}

// parsePlannerOutput 은 위임 출력 JSON 을 검증한다. 어휘 밖 행동이 섞였거나
// 유효한 행동이 하나도 없으면 오류를 돌려 fallback 경로를 태운다.
func parsePlannerOutput(content string) ([]Action, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	payload := plannerPayload{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}

	seen := make(map[Action]bool, 3)
	for _, name := range payload.Actions {
		switch Action(strings.ToLower(strings.TrimSpace(name))) {
		case Calm:
			seen[Calm] = true
		case Policy:
			seen[Policy] = true
		case Basic:
			seen[Basic] = true
		default:
			return nil, fmt.Errorf("unknown action %q", name)
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no valid actions in plan")
	}

	// 기본 응대문 생성은 계획과 무관하게 항상 실행된다.
	seen[Basic] = true

	actions := make([]Action, 0, 3)
	for _, a := range []Action{Calm, Policy, Basic} {
		if seen[a] {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

const plannerSystemPrompt = "너는 고객센터 상담 에이전트이다. 아래 규칙을 바탕으로 " +
	"어떤 행동(Action)을 수행해야 할지 결정하고, JSON 오브젝트 하나만 출력하라."

const plannerUserPrompt = `### 규칙
- emotion_label 이 "anger" 또는 "fear" 또는 "sad" 이고 emotion_score ≥ 0.6 이면: calm 포함.
- intent 가 refund-request / damage-report / shipping-inquiry 이면: policy 포함.
- 일반 문의라면: basic 만 수행.

### Output Format (JSON):
{{"actions": ["calm", "policy", "basic"]}}

intent: {intent}
emotion_label: {emotion_label}
emotion_score: {emotion_score}

JSON만 출력하라.`
