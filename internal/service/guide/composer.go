// Package guide 는 행동 계획을 실행해 고객 응대문과 상담사 코칭 노트를
// 합성한다. 고객용 생성과 상담사용 생성은 프롬프트가 분리된 별도 체인이라
// 코칭 문구가 고객 응대문에 섞이는 일은 구조적으로 불가능하다.
package guide

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"golang.org/x/sync/errgroup"

	analysis "github.com/seoyun-dev/carecall/backend/internal/analysis/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/llm"
	"github.com/seoyun-dev/carecall/backend/internal/planner"
	"github.com/seoyun-dev/carecall/backend/internal/retrieval"
	"github.com/seoyun-dev/carecall/backend/internal/service/intent"
	"github.com/seoyun-dev/carecall/backend/internal/strategy"
)

// Composer 는 고객 응대문 체인과 상담사 안정 피드백 체인을 가진다.
type Composer struct {
	customer llm.Invoker
	calm     llm.Invoker
}

// NewComposer 는 같은 채팅 모델 위에 두 체인을 각각 컴파일한다.
func NewComposer(ctx context.Context, chatModel model.ChatModel) (*Composer, error) {
	customer, err := llm.NewChain(ctx, chatModel, customerSystemPrompt, customerUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build customer response chain: %w", err)
	}

	calm, err := llm.NewChain(ctx, chatModel, calmSystemPrompt, calmUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build calm note chain: %w", err)
	}

	return &Composer{customer: customer, calm: calm}, nil
}

// NewComposerWithInvokers 는 이미 구성된 Invoker(테스트 스텁 포함)를 쓴다.
func NewComposerWithInvokers(customer, calm llm.Invoker) *Composer {
	return &Composer{customer: customer, calm: calm}
}

// Input 은 한 번의 합성에 필요한 모든 재료.
type Input struct {
	Utterance string
	Intent    intent.Label
	Label     analysis.Label
	Score     float64
	Bundle    strategy.Bundle
	Plan      planner.Decision
	Chunks    []retrieval.Chunk
}

// Output 은 고객 응대문과 상담사 노트 쌍.
type Output struct {
	CustomerText  string
	CounselorNote string
}

// Compose 는 계획된 행동을 실행한다. basic(기본 응대문 생성)은 항상 실행되고,
// policy 는 검색된 정책 조각을 고객 프롬프트에 주입하며, calm 은 상담사
// 노트에만 들어갈 안정 피드백을 추가로 생성한다. 고객용/상담사용 호출은
// 독립적이라 동시에 실행된다.
func (c *Composer) Compose(ctx context.Context, in Input) (Output, error) {
	policyContext := ""
	if in.Plan.Has(planner.Policy) {
		policyContext = retrieval.ContextBlock(in.Chunks)
	}
	if policyContext == "" {
		policyContext = "(해당 없음)"
	}

	var customerText, calmTip string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		msg, err := c.customer.Invoke(gctx, map[string]any{
			"strategy":       in.Bundle.Base,
			"refinement":     refinementOrNone(in.Bundle),
			"policy_context": policyContext,
			"user_text":      in.Utterance,
			"intent":         string(in.Intent),
			"emotion_label":  string(in.Label),
			"emotion_score":  fmt.Sprintf("%.2f", in.Score),
		})
		if err != nil {
			return fmt.Errorf("customer response generation failed: %w", err)
		}
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			return fmt.Errorf("customer response generation returned empty output")
		}
		customerText = strings.TrimSpace(msg.Content)
		return nil
	})

	if in.Plan.Has(planner.Calm) {
		g.Go(func() error {
			msg, err := c.calm.Invoke(gctx, map[string]any{
				"emotion_label": string(in.Label),
				"emotion_score": fmt.Sprintf("%.2f", in.Score),
			})
			if err != nil {
				return fmt.Errorf("calm note generation failed: %w", err)
			}
			if msg == nil || strings.TrimSpace(msg.Content) == "" {
				// 고객 응대문과 달리 팁은 없어도 노트를 만들 수 있다.
				log.Printf("[guide] calm note generation returned empty output, omitting feedback section")
				return nil
			}
			calmTip = strings.TrimSpace(msg.Content)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Output{}, err
	}

	return Output{
		CustomerText:  customerText,
		CounselorNote: buildCounselorNote(in.Bundle, calmTip),
	}, nil
}

func refinementOrNone(bundle strategy.Bundle) string {
	if bundle.Refinement == "" {
		return "(없음)"
	}
	return bundle.Refinement
}

// buildCounselorNote 는 상담사 노트를 고정 문자열로 조립한다. 생성 모델이
// 두 출력을 섞지 못하도록 조립은 코드에서만 일어난다.
func buildCounselorNote(bundle strategy.Bundle, calmTip string) string {
	var builder strings.Builder
	builder.WriteString("[응대 전략] ")
	builder.WriteString(bundle.Guidance())

	if calmTip != "" {
		builder.WriteString("\n\n[심리 안정 피드백]\n")
		builder.WriteString(calmTip)
	}

	return builder.String()
}

// 고객 응대문 프롬프트. 상담사 코칭 어휘를 명시적으로 금지한다.
const customerSystemPrompt = "당신은 고객센터 상담사입니다.\n" +
	"고객에게 전달할 실제 대응문만 생성하세요.\n" +
	"'감정 안정', '심호흡', '상담사 교육' 같은 문구는 절대 생성하지 마세요."

const customerUserPrompt = `[응대 전략]
{strategy}
{refinement}

[정책 정보 참고]
{policy_context}

[고객 발화]
{user_text}

[고객 감정 분석]
- 감정 레이블: {emotion_label}
- 감정 강도(smoothing): {emotion_score}

[고객 의도]
{intent}

요구사항:
1) 고객 감정을 먼저 공감
2) 문의 내용을 한 번 요약
3) 해결 방법 1~2개 제시
4) 정중한 존댓말로 2~5문장 안에 마무리`

// 상담사 안정 피드백 프롬프트. 고객에게 보낼 문장은 금지한다.
const calmSystemPrompt = "당신은 콜센터 상담사 교육 코치입니다. " +
	"상담사에게 줄 안정 가이드만 작성하고, 고객에게 전달할 문장은 쓰지 마세요."

const calmUserPrompt = `고객 감정: {emotion_label} (강도 {emotion_score})

형식:
- 상담사가 감정적으로 휘말리지 않기 위한 심리 안정 팁 1개
- 이 감정 상태의 고객을 다루는 상담 전략 1개
2~3문장으로 작성하세요.`
