package planner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/seoyun-dev/carecall/backend/internal/analysis/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/llm"
	"github.com/seoyun-dev/carecall/backend/internal/service/intent"
)

func stubInvoker(content string, err error) llm.Invoker {
	return llm.InvokerFunc(func(_ context.Context, _ map[string]any) (*schema.Message, error) {
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage(content, nil), nil
	})
}

func TestRulePlannerTable(t *testing.T) {
	cases := []struct {
		name   string
		intent intent.Label
		label  emotion.Label
		score  float64
		want   []Action
	}{
		{"angry refund", intent.RefundRequest, emotion.Anger, 0.9, []Action{Calm, Policy, Basic}},
		{"calm threshold inclusive", intent.GeneralInquiry, emotion.Fear, 0.6, []Action{Calm, Basic}},
		{"below calm threshold", intent.RefundRequest, emotion.Anger, 0.59, []Action{Policy, Basic}},
		{"sad complaint", intent.Complaint, emotion.Sad, 0.8, []Action{Calm, Basic}},
		{"damage report", intent.DamageReport, emotion.Neutral, 0.2, []Action{Policy, Basic}},
		{"shipping inquiry", intent.ShippingInquiry, emotion.Neutral, 0.1, []Action{Policy, Basic}},
		{"plain inquiry", intent.GeneralInquiry, emotion.Neutral, 0.3, []Action{Basic}},
	}

	p := NewRulePlanner()
	for _, tc := range cases {
		decision := p.Plan(context.Background(), tc.intent, tc.label, tc.score)
		if decision.Fallback {
			t.Fatalf("%s: rule planner should never fall back", tc.name)
		}
		if !reflect.DeepEqual(decision.Actions, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, decision.Actions)
		}
	}
}

func TestPlanIsNeverEmpty(t *testing.T) {
	p := NewRulePlanner()

	for _, label := range []emotion.Label{emotion.Anger, emotion.Sad, emotion.Fear, emotion.Neutral} {
		for _, score := range []float64{0, 0.5, 1} {
			decision := p.Plan(context.Background(), intent.GeneralInquiry, label, score)
			if len(decision.Actions) == 0 {
				t.Fatalf("empty plan for label=%s score=%f", label, score)
			}
			if !decision.Has(Basic) {
				t.Fatalf("plan must always include basic, got %v", decision.Actions)
			}
		}
	}
}

func TestLLMPlannerValidOutput(t *testing.T) {
	p := NewLLMPlannerWithInvoker(stubInvoker(`{"actions": ["calm", "policy", "basic"]}`, nil))

	decision := p.Plan(context.Background(), intent.RefundRequest, emotion.Anger, 0.9)
	if decision.Fallback {
		t.Fatalf("expected no fallback, got reason %q", decision.Reason)
	}
	if !reflect.DeepEqual(decision.Actions, []Action{Calm, Policy, Basic}) {
		t.Fatalf("unexpected actions %v", decision.Actions)
	}
}

func TestLLMPlannerForcesBasicAndCanonicalOrder(t *testing.T) {
	p := NewLLMPlannerWithInvoker(stubInvoker(`{"actions": ["policy", "calm"]}`, nil))

	decision := p.Plan(context.Background(), intent.RefundRequest, emotion.Anger, 0.9)
	if !reflect.DeepEqual(decision.Actions, []Action{Calm, Policy, Basic}) {
		t.Fatalf("expected canonical order with basic, got %v", decision.Actions)
	}
}

func TestLLMPlannerMalformedOutputFallsBack(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no json", "calm 과 policy 를 수행하세요"},
		{"unknown action", `{"actions": ["escalate"]}`},
		{"empty actions", `{"actions": []}`},
		{"broken json", `{"actions": ["calm"`},
	}

	for _, tc := range cases {
		p := NewLLMPlannerWithInvoker(stubInvoker(tc.content, nil))
		decision := p.Plan(context.Background(), intent.RefundRequest, emotion.Anger, 0.9)

		if !decision.Fallback {
			t.Fatalf("%s: expected fallback decision", tc.name)
		}
		if !reflect.DeepEqual(decision.Actions, []Action{Policy, Basic}) {
			t.Fatalf("%s: expected fixed fallback plan, got %v", tc.name, decision.Actions)
		}
	}
}

func TestLLMPlannerInvokeErrorFallsBack(t *testing.T) {
	p := NewLLMPlannerWithInvoker(stubInvoker("", errors.New("upstream unavailable")))

	decision := p.Plan(context.Background(), intent.GeneralInquiry, emotion.Neutral, 0.1)
	if !decision.Fallback {
		t.Fatalf("expected fallback on invoke error")
	}
	if !reflect.DeepEqual(decision.Actions, []Action{Policy, Basic}) {
		t.Fatalf("expected fixed fallback plan, got %v", decision.Actions)
	}
	if decision.Reason == "" {
		t.Fatalf("expected fallback reason to be recorded")
	}
}

func TestLLMPlannerJSONWithSurroundingText(t *testing.T) {
	content := "계획은 다음과 같습니다:\n```json\n{\"actions\": [\"policy\"]}\n```"
	p := NewLLMPlannerWithInvoker(stubInvoker(content, nil))

	decision := p.Plan(context.Background(), intent.ShippingInquiry, emotion.Neutral, 0.2)
	if decision.Fallback {
		t.Fatalf("expected fenced json to parse, fell back: %s", decision.Reason)
	}
	if !reflect.DeepEqual(decision.Actions, []Action{Policy, Basic}) {
		t.Fatalf("unexpected actions %v", decision.Actions)
	}
}
