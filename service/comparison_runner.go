package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	simulatedBefore = "你可以去设置里重置密码。点击那个按钮。"
	simulatedAfter  = "您好！要重置密码，请前往‘账户设置’->‘安全’->‘修改密码’。我们会发送一个安全链接到您的注册邮箱。如果需要更多帮助，请随时告知！"
)

type ComparisonRequest struct {
	Prompt       string
	BaseModelID  string
	TunedModelID string
}

// ComparisonRunner 对同一提示词分别调用基础模型和微调模型。
type ComparisonRunner interface {
	Compare(ctx context.Context, req ComparisonRequest) (entity.ComparisonResult, error)
}

// SimulatedRunner 固定延迟后返回写死的一对回答，不做真实推理。
type SimulatedRunner struct {
	Delay  time.Duration
	Before string
	After  string
}

func NewSimulatedRunner(delay time.Duration) *SimulatedRunner {
	return &SimulatedRunner{
		Delay:  delay,
		Before: simulatedBefore,
		After:  simulatedAfter,
	}
}

func (r *SimulatedRunner) Compare(ctx context.Context, _ ComparisonRequest) (entity.ComparisonResult, error) {
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return entity.ComparisonResult{}, ctx.Err()
	case <-timer.C:
	}
	return entity.ComparisonResult{Before: r.Before, After: r.After}, nil
}

// OpenAIRunner 走 OpenAI 兼容接口（vLLM 等），微调模型以任务 ID 作为模型名部署。
type OpenAIRunner struct {
	client openai.Client
}

func NewOpenAIRunner(baseURL, apiKey string) *OpenAIRunner {
	opts := []option.RequestOption{}
	if u := strings.TrimSpace(baseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	if k := strings.TrimSpace(apiKey); k != "" {
		opts = append(opts, option.WithAPIKey(k))
	}
	return &OpenAIRunner{client: openai.NewClient(opts...)}
}

func (r *OpenAIRunner) Compare(ctx context.Context, req ComparisonRequest) (entity.ComparisonResult, error) {
	before, err := r.generate(ctx, req.BaseModelID, req.Prompt)
	if err != nil {
		return entity.ComparisonResult{}, fmt.Errorf("base model generation failed: %w", err)
	}
	after, err := r.generate(ctx, req.TunedModelID, req.Prompt)
	if err != nil {
		return entity.ComparisonResult{}, fmt.Errorf("tuned model generation failed: %w", err)
	}
	return entity.ComparisonResult{Before: before, After: after}, nil
}

func (r *OpenAIRunner) generate(ctx context.Context, model, prompt string) (string, error) {
	res, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: model,
	})
	if err != nil {
		serviceLogger().Error("openai error: chat completions failed", "model", model, "error", err)
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", model)
	}
	return res.Choices[0].Message.Content, nil
}

var (
	_ ComparisonRunner = (*SimulatedRunner)(nil)
	_ ComparisonRunner = (*OpenAIRunner)(nil)
)
