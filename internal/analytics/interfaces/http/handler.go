package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicpulse/accountability/internal/analytics/application"
	"github.com/civicpulse/accountability/internal/analytics/domain"
)

// HTTP 处理器
// 暴露手动触发入口与看板只读查询
type AnalyticsHandler struct {
	kpi      *application.KPIService
	rules    *application.RuleEngine
	pipeline *application.Pipeline
	records  domain.RecordRepository
	query    *application.DashboardQueryService
}

// NewAnalyticsHandler 创建 HTTP 处理器实例
func NewAnalyticsHandler(
	kpi *application.KPIService,
	rules *application.RuleEngine,
	pipeline *application.Pipeline,
	records domain.RecordRepository,
	query *application.DashboardQueryService,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		kpi:      kpi,
		rules:    rules,
		pipeline: pipeline,
		records:  records,
		query:    query,
	}
}

// RegisterRoutes 注册路由
func (h *AnalyticsHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/kpi/compute", h.ComputeKPI)
		api.POST("/rules/inspect/:complaint_id", h.InspectComplaint)
		api.POST("/pipeline/run", h.RunPipeline)
		api.POST("/pipeline/layers/:layer/run", h.RunLayer)
		api.GET("/officers/:id/summary", h.GetOfficerSummary)
		api.GET("/districts/:district/overview", h.GetDistrictOverview)
		api.GET("/alerts", h.GetAlertFeed)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)
	}
}

type computeKPIRequest struct {
	OfficerID string `json:"officer_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
}

// ComputeKPI 手动触发单人单日 KPI 计算
func (h *AnalyticsHandler) ComputeKPI(c *gin.Context) {
	var req computeKPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	metric, err := h.kpi.ComputeAll(c.Request.Context(), req.OfficerID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metric)
}

// InspectComplaint 手动触发单工单实时规则检测
func (h *AnalyticsHandler) InspectComplaint(c *gin.Context) {
	complaintID := c.Param("complaint_id")
	complaint, err := h.records.GetComplaint(c.Request.Context(), complaintID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if complaint == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "complaint not found"})
		return
	}

	fired, err := h.rules.InspectResolution(c.Request.Context(), complaint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint_id": complaintID, "fired_rules": fired})
}

// RunPipeline 手动触发整条流水线（第 2–5 层）
func (h *AnalyticsHandler) RunPipeline(c *gin.Context) {
	result := h.pipeline.RunAll(c.Request.Context(), time.Now())
	status := http.StatusOK
	if len(result.Failed()) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// RunLayer 手动触发单个批处理层
func (h *AnalyticsHandler) RunLayer(c *gin.Context) {
	layer, err := strconv.Atoi(c.Param("layer"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid layer"})
		return
	}
	if err := h.pipeline.RunLayer(c.Request.Context(), layer, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"layer": layer, "status": "completed"})
}

// GetOfficerSummary 人员概览
func (h *AnalyticsHandler) GetOfficerSummary(c *gin.Context) {
	officerID := c.Param("id")
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.query.GetOfficerSummary(c.Request.Context(), officerID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetDistrictOverview 辖区概览
func (h *AnalyticsHandler) GetDistrictOverview(c *gin.Context) {
	district := c.Param("district")
	dateStr := c.DefaultQuery("date", time.Now().AddDate(0, 0, -1).Format(time.DateOnly))
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	overview, err := h.query.GetDistrictOverview(c.Request.Context(), district, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetAlertFeed 告警列表
func (h *AnalyticsHandler) GetAlertFeed(c *gin.Context) {
	status := c.Query("status")
	severity := domain.Severity(c.Query("severity"))

	alerts, err := h.query.GetAlertFeed(c.Request.Context(), status, severity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// ResolveAlert 告警状态流转
func (h *AnalyticsHandler) ResolveAlert(c *gin.Context) {
	alertID := c.Param("id")
	if err := h.query.ResolveAlert(c.Request.Context(), alertID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert_id": alertID, "status": domain.AlertStatusResolved})
}

// parseRange 解析 from/to 查询参数，默认最近 30 天
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := c.Query("from"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if s := c.Query("to"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}
