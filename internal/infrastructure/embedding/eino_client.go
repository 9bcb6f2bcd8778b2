package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/shreyan01/ruberic/internal/config"
	"github.com/shreyan01/ruberic/pkg/metrics"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// NewEinoEmbedder 创建基于 Eino 的 Embedder
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	// 使用 Eino 的 OpenAI 适配器
	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	return &measuredEmbedder{inner: embedder, model: cfg.Model}, nil
}

// measuredEmbedder 在 Embedder 外层记录批次耗时与调用计数
type measuredEmbedder struct {
	inner embedding.Embedder
	model string
}

func (m *measuredEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	start := time.Now()
	out, err := m.inner.EmbedStrings(ctx, texts, opts...)
	metrics.EmbeddingBatchDuration.WithLabelValues(m.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmbeddingCallTotal.WithLabelValues(m.model, "error").Inc()
		return nil, err
	}
	metrics.EmbeddingCallTotal.WithLabelValues(m.model, "ok").Inc()
	return out, nil
}
