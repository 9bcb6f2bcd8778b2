// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shreyan01/ruberic/internal/application/ingest"
	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// DocumentHandler 文档处理器
type DocumentHandler struct {
	processor *ingest.Processor
	docRepo   repository.DocumentRepository
	meter     *usage.Meter
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(processor *ingest.Processor, docRepo repository.DocumentRepository, meter *usage.Meter) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
		docRepo:   docRepo,
		meter:     meter,
	}
}

// Upload 上传并摄取文档
// @Summary 上传文档
// @Description 上传文档并执行抽取、分块、向量化；摄取失败时文档落为 failed 终态
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文档文件"
// @Param project_id formData string false "项目 ID，缺省为账户默认项目"
// @Success 201 {object} dto.Response[dto.DocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	apiKeyID := middleware.GetAPIKeyIDFromGin(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		dto.BadRequest(c, "missing file field")
		return
	}

	projectID := c.PostForm("project_id")
	if projectID != "" {
		if _, err := uuid.Parse(projectID); err != nil {
			dto.BadRequest(c, "project_id must be a UUID")
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		dto.BadRequest(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		dto.BadRequest(c, "failed to read uploaded file")
		return
	}

	// 摄取触发嵌入调用，属计费动作，先过额度门
	if err := h.meter.CheckLimit(ctx, accountID); err != nil {
		respondError(c, err, "usage check failed")
		return
	}

	in := &ingest.UploadInput{
		AccountID:   accountID,
		ProjectID:   projectID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}

	doc, err := h.processor.Process(ctx, in)
	if err != nil {
		// 文档已创建时返回其终态，便于客户端看到失败原因
		if doc != nil {
			dto.UnprocessableEntity(c, "document ingestion failed", &dto.ErrorDetail{
				Details: doc.ProcessingError,
			})
			return
		}
		respondError(c, err, "failed to ingest document")
		return
	}

	// 计量为旁路动作，失败只记日志；以文件大小近似嵌入消耗
	if err := h.meter.Record(ctx, accountID, apiKeyID, "upload", usage.EstimateTokens(len(data))); err != nil {
		logger.FromContext(ctx).Warn("failed to record upload usage",
			"account_id", accountID,
			"error", err,
		)
	}

	dto.Created(c, dto.ToDocumentResponse(doc))
}

// List 获取文档列表
// @Summary 获取文档列表
// @Description 获取当前账户的文档，支持按项目与状态过滤
// @Tags Documents
// @Produce json
// @Param project_id query string false "项目 ID"
// @Param status query string false "文档状态"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.DocumentListResponse]
// @Router /v1/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	pageReq := dto.BindPage(c)
	filter := &repository.DocumentFilter{
		AccountID: accountID,
		ProjectID: c.Query("project_id"),
		Status:    entity.DocumentStatus(c.Query("status")),
	}

	result, err := h.docRepo.List(ctx, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list documents")
		return
	}

	resp := dto.ToDocumentListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// Get 获取文档详情
// @Summary 获取文档详情
// @Tags Documents
// @Produce json
// @Param did path string true "文档 ID"
// @Success 200 {object} dto.Response[dto.DocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{did} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToDocumentResponse(doc))
}

// Chunks 获取文档分块列表
// @Summary 获取文档分块
// @Description 按 chunk_index 升序返回文档分块
// @Tags Documents
// @Produce json
// @Param did path string true "文档 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ChunkListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{did}/chunks [get]
func (h *DocumentHandler) Chunks(c *gin.Context) {
	ctx := c.Request.Context()

	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	pageReq := dto.BindPage(c)
	result, err := h.docRepo.ListChunks(ctx, doc.ID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list document chunks")
		return
	}

	resp := dto.ToChunkListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// Delete 删除文档
// @Summary 删除文档
// @Description 删除文档记录、分块与向量
// @Tags Documents
// @Produce json
// @Param did path string true "文档 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{did} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	if err := h.processor.Delete(ctx, doc); err != nil {
		respondError(c, err, "failed to delete document")
		return
	}

	dto.NoContent(c)
}

// ownedDocument 取出路径里的文档并校验归属，失败时已写响应
func (h *DocumentHandler) ownedDocument(c *gin.Context) (*entity.Document, bool) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	documentID := dto.BindDocumentID(c)

	doc, err := h.docRepo.GetByID(ctx, documentID)
	if err != nil {
		respondError(c, err, "failed to get document")
		return nil, false
	}
	if doc == nil || doc.AccountID != accountID {
		dto.NotFound(c, "document not found")
		return nil, false
	}
	return doc, true
}
