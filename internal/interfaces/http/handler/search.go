// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/application/retrieval"
	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// SearchHandler 相似检索处理器
type SearchHandler struct {
	engine *retrieval.Engine
	meter  *usage.Meter
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(engine *retrieval.Engine, meter *usage.Meter) *SearchHandler {
	return &SearchHandler{
		engine: engine,
		meter:  meter,
	}
}

// Search 相似检索
// @Summary 相似检索
// @Description 检索与查询相关的文档分块，按相似度降序；空结果不是错误
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	apiKeyID := middleware.GetAPIKeyIDFromGin(c)

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 查询向量化是计费动作，先过额度门
	if err := h.meter.CheckLimit(ctx, accountID); err != nil {
		respondError(c, err, "usage check failed")
		return
	}

	out, err := h.engine.Search(ctx, retrieval.SearchInput{
		AccountID: accountID,
		ProjectID: req.ProjectID,
		Query:     req.Query,
		Limit:     req.Limit,
		Threshold: req.Threshold,
	})
	if err != nil {
		respondError(c, err, "search failed")
		return
	}

	// 计量为旁路动作，失败只记日志
	if err := h.meter.Record(ctx, accountID, apiKeyID, "search", usage.EstimateTokens(len(req.Query))); err != nil {
		logger.FromContext(ctx).Warn("failed to record search usage",
			"account_id", accountID,
			"error", err,
		)
	}

	dto.Success(c, dto.ToSearchResponse(out.Matches))
}
