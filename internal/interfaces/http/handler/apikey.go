// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/application/apikey"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
)

// APIKeyHandler 密钥处理器
type APIKeyHandler struct {
	manager *apikey.Manager
}

// NewAPIKeyHandler 创建密钥处理器
func NewAPIKeyHandler(manager *apikey.Manager) *APIKeyHandler {
	return &APIKeyHandler{
		manager: manager,
	}
}

// Create 创建密钥
// @Summary 创建密钥
// @Description 为当前账户签发新密钥，明文仅返回一次
// @Tags APIKeys
// @Accept json
// @Produce json
// @Param body body dto.CreateAPIKeyRequest true "密钥信息"
// @Success 201 {object} dto.Response[dto.CreateAPIKeyResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/api-keys [post]
func (h *APIKeyHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := h.manager.Create(ctx, accountID, req.Name, req.ExpiresAt)
	if err != nil {
		respondError(c, err, "failed to create API key")
		return
	}

	dto.Created(c, &dto.CreateAPIKeyResponse{
		APIKeyResponse: *dto.ToAPIKeyResponse(created.Key),
		Key:            created.Plaintext,
	})
}

// List 获取密钥列表
// @Summary 获取密钥列表
// @Description 获取当前账户的全部密钥
// @Tags APIKeys
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.APIKeyListResponse]
// @Router /v1/api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	pageReq := dto.BindPage(c)

	result, err := h.manager.List(ctx, accountID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list API keys")
		return
	}

	resp := dto.ToAPIKeyListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// Revoke 停用密钥
// @Summary 停用密钥
// @Description 软停用密钥，记录与使用统计保留
// @Tags APIKeys
// @Produce json
// @Param kid path string true "密钥 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/api-keys/{kid}/revoke [post]
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	keyID := dto.BindKeyID(c)

	if err := h.manager.Revoke(ctx, accountID, keyID); err != nil {
		respondError(c, err, "failed to revoke API key")
		return
	}

	dto.NoContent(c)
}

// Delete 删除密钥
// @Summary 删除密钥
// @Description 永久删除密钥
// @Tags APIKeys
// @Produce json
// @Param kid path string true "密钥 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/api-keys/{kid} [delete]
func (h *APIKeyHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	keyID := dto.BindKeyID(c)

	if err := h.manager.Delete(ctx, accountID, keyID); err != nil {
		respondError(c, err, "failed to delete API key")
		return
	}

	dto.NoContent(c)
}
