// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
)

// UsageHandler 用量处理器
type UsageHandler struct {
	meter *usage.Meter
}

// NewUsageHandler 创建用量处理器
func NewUsageHandler(meter *usage.Meter) *UsageHandler {
	return &UsageHandler{
		meter: meter,
	}
}

// Report 获取用量报告
// @Summary 获取用量报告
// @Description 返回账户当前用量、额度与时间范围内的汇总
// @Tags Usage
// @Produce json
// @Param from query string false "起始时间 RFC3339，缺省为 30 天前"
// @Param to query string false "结束时间 RFC3339，缺省为当前时间"
// @Success 200 {object} dto.Response[dto.UsageReportResponse]
// @Router /v1/usage [get]
func (h *UsageHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	from, to := bindTimeRange(c)

	account, err := h.meter.Snapshot(ctx, accountID)
	if err != nil {
		respondError(c, err, "failed to get account")
		return
	}

	summary, err := h.meter.Report(ctx, accountID, from, to)
	if err != nil {
		respondError(c, err, "failed to summarize usage")
		return
	}

	dto.Success(c, dto.ToUsageReportResponse(account, summary))
}

// Records 获取用量明细
// @Summary 获取用量明细
// @Description 返回账户时间范围内的计费调用明细
// @Tags Usage
// @Produce json
// @Param from query string false "起始时间 RFC3339，缺省为 30 天前"
// @Param to query string false "结束时间 RFC3339，缺省为当前时间"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.UsageRecordListResponse]
// @Router /v1/usage/records [get]
func (h *UsageHandler) Records(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.GetAccountIDFromGin(c)

	from, to := bindTimeRange(c)
	pageReq := dto.BindPage(c)

	result, err := h.meter.Records(ctx, accountID, from, to, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list usage records")
		return
	}

	resp := dto.ToUsageRecordListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// bindTimeRange 解析查询时间范围，缺省为最近 30 天
func bindTimeRange(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}
	return from, to
}
