package intent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/seoyun-dev/carecall/backend/internal/llm"
)

// Label 은 고객 발화 의도. 분류 결과는 항상 이 닫힌 집합의 원소다.
type Label string

const (
	RefundRequest   Label = "refund-request"
	ShippingInquiry Label = "shipping-inquiry"
	Complaint       Label = "complaint"
	DamageReport    Label = "damage-report"
	PaymentIssue    Label = "payment-issue"
	GeneralInquiry  Label = "general-inquiry"
)

// Labels 는 분류 프롬프트에 제시되는 전체 의도 목록.
func Labels() []Label {
	return []Label{
		RefundRequest,
		ShippingInquiry,
		Complaint,
		DamageReport,
		PaymentIssue,
		GeneralInquiry,
	}
}

// koreanAliases 는 상담 데이터에 쓰이던 한국어 라벨을 표준 라벨로 잇는다.
var koreanAliases = map[string]Label{
	"환불요청": RefundRequest,
	"배송문의": ShippingInquiry,
	"불만":   Complaint,
	"파손문의": DamageReport,
	"결제문제": PaymentIssue,
	"일반문의": GeneralInquiry,
}

// Normalize 는 모델 출력(또는 외부 입력)을 표준 라벨로 강제한다.
// 알 수 없는 출력은 general-inquiry 로 수렴한다.
func Normalize(raw string) Label {
	cleaned := strings.Trim(strings.TrimSpace(raw), `"'.`)
	if cleaned == "" {
		return GeneralInquiry
	}

	lowered := strings.ToLower(cleaned)
	for _, label := range Labels() {
		if lowered == string(label) {
			return label
		}
	}

	if label, ok := koreanAliases[cleaned]; ok {
		return label
	}

	return GeneralInquiry
}

const classifySystemPrompt = "당신은 콜센터 고객 발화의 의도를 분류하는 AI입니다. " +
	"주어진 라벨 목록에서 정확히 하나만 골라 라벨 문자열만 출력하세요. 다른 설명은 쓰지 마세요."

const classifyUserPrompt = `가능한 라벨:
{labels}

고객 발화: "{text}"

규칙:
- 라벨만 출력하세요.`

// Classifier 는 외부 언어 이해 서비스에 의도 판단을 위임하고
// 출력 검증과 기본 라벨 강제만 직접 수행한다.
type Classifier struct {
	invoker llm.Invoker
}

// NewClassifier 는 채팅 모델 위에 분류 체인을 컴파일한다.
func NewClassifier(ctx context.Context, chatModel model.ChatModel) (*Classifier, error) {
	invoker, err := llm.NewChain(ctx, chatModel, classifySystemPrompt, classifyUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent chain: %w", err)
	}
	return &Classifier{invoker: invoker}, nil
}

// NewClassifierWithInvoker 는 이미 구성된 Invoker(테스트 스텁 포함)를 쓴다.
func NewClassifierWithInvoker(invoker llm.Invoker) *Classifier {
	return &Classifier{invoker: invoker}
}

// Classify 는 발화 의도를 분류한다. 전송 오류는 그대로 전파하고
// 재시도는 하지 않는다. 반환 라벨은 항상 어휘 집합의 원소다.
func (c *Classifier) Classify(ctx context.Context, text string) (Label, error) {
	names := make([]string, 0, len(Labels()))
	for _, label := range Labels() {
		names = append(names, string(label))
	}

	msg, err := c.invoker.Invoke(ctx, map[string]any{
		"labels": strings.Join(names, ", "),
		"text":   text,
	})
	if err != nil {
		return "", fmt.Errorf("intent classification failed: %w", err)
	}
	if msg == nil {
		return GeneralInquiry, nil
	}

	label := Normalize(msg.Content)
	if label == GeneralInquiry && strings.TrimSpace(msg.Content) != string(GeneralInquiry) {
		log.Printf("[intent] unrecognized label %q, coerced to %s", strings.TrimSpace(msg.Content), GeneralInquiry)
	}
	return label, nil
}
