// Package chat 提供基于文档检索的问答能力
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/shreyan01/ruberic/internal/application/retrieval"
	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/infrastructure/llm"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
	"github.com/shreyan01/ruberic/pkg/logger"
	"github.com/shreyan01/ruberic/pkg/metrics"
)

// Input 问答输入
type Input struct {
	AccountID string
	APIKeyID  string
	ProjectID string
	Query     string

	// Provider 为空使用默认 LLM 提供商
	Provider string
}

// Output 问答结果
type Output struct {
	Answer     string
	Sources    []retrieval.Match
	TokensUsed int64

	// Degraded 表示检索失败后以空上下文回答
	Degraded bool
}

// Assistant 文档问答服务
// 流程：额度检查 -> 相似检索（可降级）-> LLM 生成 -> 用量记账
type Assistant struct {
	engine  *retrieval.Engine
	factory *llm.EinoFactory
	meter   *usage.Meter
}

// NewAssistant 创建问答服务
func NewAssistant(engine *retrieval.Engine, factory *llm.EinoFactory, meter *usage.Meter) *Assistant {
	return &Assistant{
		engine:  engine,
		factory: factory,
		meter:   meter,
	}
}

// Ask 回答一个问题
func (a *Assistant) Ask(ctx context.Context, in *Input) (*Output, error) {
	if a == nil || a.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "query is required")
	}

	if err := a.meter.CheckLimit(ctx, in.AccountID); err != nil {
		return nil, err
	}

	out := &Output{}

	// 检索失败不阻断问答，以空上下文降级回答
	searchOut, err := a.engine.Search(ctx, retrieval.SearchInput{
		AccountID: in.AccountID,
		ProjectID: in.ProjectID,
		Query:     query,
	})
	switch {
	case err == nil:
		out.Sources = searchOut.Matches
	case isSearchFailure(err):
		out.Degraded = true
		logger.FromContext(ctx).Warn("retrieval failed, answering without context",
			"account_id", in.AccountID,
			"error", err,
		)
	default:
		return nil, err
	}

	provider := strings.TrimSpace(in.Provider)
	chatModel, err := a.factory.Get(ctx, provider)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderErr, "LLM provider unavailable")
	}
	if provider == "" {
		provider = "default"
	}

	msgs := buildMessages(query, out.Sources)

	start := time.Now()
	outMsg, err := chatModel.Generate(ctx, msgs)
	metrics.LLMCallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "LLM call failed")
	}
	metrics.LLMCallTotal.WithLabelValues(provider, "ok").Inc()

	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return nil, apperrors.New(apperrors.CodeLLMCallFailed, "empty LLM response")
	}
	out.Answer = strings.TrimSpace(outMsg.Content)

	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		u := outMsg.ResponseMeta.Usage
		metrics.LLMTokensUsed.WithLabelValues(provider, "prompt").Add(float64(u.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(provider, "completion").Add(float64(u.CompletionTokens))
		out.TokensUsed = int64(u.PromptTokens + u.CompletionTokens)
	}
	if out.TokensUsed > 0 {
		if err := a.meter.Record(ctx, in.AccountID, in.APIKeyID, "chat", out.TokensUsed); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func buildMessages(query string, matches []retrieval.Match) []*schema.Message {
	system := systemPrompt
	if promptCtx := BuildPromptContext(matches, 5, 800); promptCtx != "" {
		system = system + "\n\n" + promptCtx
	}
	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(query),
	}
}

// isSearchFailure 区分“检索基础设施失败”（可降级）与参数类错误（不可降级）
func isSearchFailure(err error) bool {
	if errors.Is(err, retrieval.ErrVectorDisabled) {
		return true
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == apperrors.CodeSearchFailed
	}
	return false
}
