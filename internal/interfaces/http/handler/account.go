// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/application/apikey"
	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// AccountHandler 账户处理器
type AccountHandler struct {
	accountRepo repository.AccountRepository
	keyManager  *apikey.Manager
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accountRepo repository.AccountRepository, keyManager *apikey.Manager) *AccountHandler {
	return &AccountHandler{
		accountRepo: accountRepo,
		keyManager:  keyManager,
	}
}

// Register 注册账户
// @Summary 注册账户
// @Description 创建账户并签发初始 API 密钥，密钥明文仅返回一次
// @Tags Accounts
// @Accept json
// @Produce json
// @Param body body dto.RegisterAccountRequest true "账户信息"
// @Success 201 {object} dto.Response[dto.RegisterAccountResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/accounts [post]
func (h *AccountHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if existing, err := h.accountRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		dto.Conflict(c, "account with this email already exists")
		return
	}

	account := entity.NewAccount(req.Email, req.Name)
	if err := h.accountRepo.Create(ctx, account); err != nil {
		respondError(c, err, "failed to create account")
		return
	}

	created, err := h.keyManager.Create(ctx, account.ID, "default", nil)
	if err != nil {
		respondError(c, err, "failed to issue initial API key")
		return
	}

	logger.Info(ctx, "account registered", "account_id", account.ID)

	dto.Created(c, &dto.RegisterAccountResponse{
		Account: dto.ToAccountResponse(account),
		APIKey:  created.Plaintext,
	})
}
