// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projectRepo repository.ProjectRepository
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projectRepo repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
	}
}

// List 获取项目列表
// @Summary 获取项目列表
// @Description 获取当前账户的项目列表
// @Tags Projects
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	pageReq := dto.BindPage(c)

	result, err := h.projectRepo.ListByAccount(ctx, accountID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list projects")
		return
	}

	resp := dto.ToProjectListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// Create 创建项目
// @Summary 创建项目
// @Description 创建新的文档项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project := req.ToProjectEntity(accountID)
	if err := h.projectRepo.Create(ctx, project); err != nil {
		respondError(c, err, "failed to create project")
		return
	}

	dto.Created(c, dto.ToProjectResponse(project))
}

// Get 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// Update 更新项目
// @Summary 更新项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.UpdateProjectRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req.ApplyToProject(project)
	if err := h.projectRepo.Update(ctx, project); err != nil {
		respondError(c, err, "failed to update project")
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// Delete 删除项目
// @Summary 删除项目
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	if err := h.projectRepo.Delete(ctx, project.ID); err != nil {
		respondError(c, err, "failed to delete project")
		return
	}

	dto.NoContent(c)
}

// ownedProject 取出路径里的项目并校验归属，失败时已写响应
func (h *ProjectHandler) ownedProject(c *gin.Context) (*entity.Project, bool) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)
	projectID := dto.BindProjectID(c)

	project, err := h.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		respondError(c, err, "failed to get project")
		return nil, false
	}
	if project == nil || project.AccountID != accountID {
		dto.NotFound(c, "project not found")
		return nil, false
	}
	return project, true
}
