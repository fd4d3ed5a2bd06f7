package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Invoker 는 파이프라인이 사용하는 유일한 생성 능력 인터페이스.
// 의도 분류, 행동 계획, 응답 생성이 전부 이 계약 하나만 본다.
// 어떤 백엔드(eino 체인, 테스트 스텁)를 쓸지는 생성 시점에 정해진다.
type Invoker interface {
	Invoke(ctx context.Context, input map[string]any) (*schema.Message, error)
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, input map[string]any) (*schema.Message, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, input map[string]any) (*schema.Message, error) {
	return f(ctx, input)
}

// NewChain compiles a two-message eino chain (system + user template) over
// chatModel and exposes it as an Invoker. Templates use FString placeholders.
func NewChain(ctx context.Context, chatModel model.ChatModel, systemTemplate, userTemplate string) (Invoker, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemTemplate),
		schema.UserMessage(userTemplate),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return InvokerFunc(func(ctx context.Context, input map[string]any) (*schema.Message, error) {
		return runnable.Invoke(ctx, input)
	}), nil
}
