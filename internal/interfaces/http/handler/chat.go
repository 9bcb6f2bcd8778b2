// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/application/chat"
	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// ChatHandler 文档问答处理器
type ChatHandler struct {
	assistant *chat.Assistant
	meter     *usage.Meter
}

// NewChatHandler 创建问答处理器
func NewChatHandler(assistant *chat.Assistant, meter *usage.Meter) *ChatHandler {
	return &ChatHandler{
		assistant: assistant,
		meter:     meter,
	}
}

// Chat 文档问答
// @Summary 文档问答
// @Description 基于相似检索结果回答问题；检索不可用时降级为无上下文回答
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "问答请求"
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	apiKeyID := middleware.GetAPIKeyIDFromGin(c)

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	out, err := h.assistant.Ask(ctx, &chat.Input{
		AccountID: accountID,
		APIKeyID:  apiKeyID,
		ProjectID: req.ProjectID,
		Query:     req.Query,
		Provider:  req.Provider,
	})
	if err != nil {
		respondError(c, err, "chat failed")
		return
	}

	// 剩余额度为展示信息，读取失败不影响应答
	var remaining int64
	if account, err := h.meter.Snapshot(ctx, accountID); err == nil {
		remaining = account.Remaining()
	} else {
		logger.FromContext(ctx).Warn("failed to read usage snapshot",
			"account_id", accountID,
			"error", err,
		)
	}

	dto.Success(c, dto.ToChatResponse(out, h.meter.Cost(out.TokensUsed), remaining))
}
