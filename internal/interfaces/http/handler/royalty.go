package handler

import (
	"net/http"

	royaltyapp "github.com/foodtruck/backend/internal/application/royalty"
	"github.com/foodtruck/backend/internal/interfaces/http/dto"
	"github.com/foodtruck/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// RoyaltyHandler serves royalty reports and sales summaries
type RoyaltyHandler struct {
	BaseHandler
	royaltyService *royaltyapp.RoyaltyService
}

// NewRoyaltyHandler creates a new RoyaltyHandler
func NewRoyaltyHandler(royaltyService *royaltyapp.RoyaltyService) *RoyaltyHandler {
	return &RoyaltyHandler{royaltyService: royaltyService}
}

// RegisterRoutes registers the royalty routes on group
func (h *RoyaltyHandler) RegisterRoutes(group *router.DomainGroup) {
	group.POST("/reports", h.GenerateReport)
	group.POST("/reports/batch", h.GeneratePeriod)
	group.GET("/reports/:id", h.GetReport)
	group.GET("/franchisees/:franchiseeId/reports", h.ListReports)
	group.GET("/franchisees/:franchiseeId/sales-summary", h.SalesSummary)
}

// GenerateReport godoc
// @Summary      Generate royalty report
// @Description  Return the report of a (franchisee, period), creating it once. 201 when this call stored the report, 200 when it already existed.
// @Tags         royalty
// @Accept       json
// @Produce      json
// @Param        request body royaltyapp.GenerateReportRequest true "Franchisee and period (YYYY-MM)"
// @Success      200 {object} dto.Response{data=royaltyapp.GenerateReportResult}
// @Success      201 {object} dto.Response{data=royaltyapp.GenerateReportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /royalty/reports [post]
func (h *RoyaltyHandler) GenerateReport(c *gin.Context) {
	var req royaltyapp.GenerateReportRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.royaltyService.Generate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Created {
		h.Created(c, result)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// GetReport godoc
// @Summary      Get royalty report
// @Description  Return one stored royalty report
// @Tags         royalty
// @Produce      json
// @Param        id path string true "Report ID" format(uuid)
// @Success      200 {object} dto.Response{data=royaltyapp.RoyaltyReportResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /royalty/reports/{id} [get]
func (h *RoyaltyHandler) GetReport(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	report, err := h.royaltyService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListReports godoc
// @Summary      List royalty reports
// @Description  List a franchisee's reports, newest period first. With period set, the single report of that period is returned.
// @Tags         royalty
// @Produce      json
// @Param        franchiseeId path string true "Franchisee ID" format(uuid)
// @Param        period query string false "Period (YYYY-MM)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]royaltyapp.RoyaltyReportResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /royalty/franchisees/{franchiseeId}/reports [get]
func (h *RoyaltyHandler) ListReports(c *gin.Context) {
	franchiseeID, ok := h.uuidParam(c, "franchiseeId")
	if !ok {
		return
	}

	if period := c.Query("period"); period != "" {
		report, err := h.royaltyService.GetByKey(c.Request.Context(), franchiseeID, period)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, report)
		return
	}

	var filter royaltyapp.ReportListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	reports, total, err := h.royaltyService.ListByFranchisee(c.Request.Context(), franchiseeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page := dto.NormalizePagination(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, reports, total, page.Page, page.PageSize)
}

// SalesSummary godoc
// @Summary      Period sales summary
// @Description  Return fulfilled sales of a period without storing a report
// @Tags         royalty
// @Produce      json
// @Param        franchiseeId path string true "Franchisee ID" format(uuid)
// @Param        period query string true "Period (YYYY-MM)"
// @Success      200 {object} dto.Response{data=royaltyapp.SalesSummaryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /royalty/franchisees/{franchiseeId}/sales-summary [get]
func (h *RoyaltyHandler) SalesSummary(c *gin.Context) {
	franchiseeID, ok := h.uuidParam(c, "franchiseeId")
	if !ok {
		return
	}
	period := c.Query("period")
	if period == "" {
		h.BadRequest(c, "Query parameter period (YYYY-MM) is required")
		return
	}

	summary, err := h.royaltyService.SalesSummary(c.Request.Context(), franchiseeID, period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GeneratePeriod godoc
// @Summary      Generate royalty reports for a period
// @Description  Generate the period's report for every franchisee holding an agreement. Existing reports are kept, franchisees without an agreement in force are skipped.
// @Tags         royalty
// @Accept       json
// @Produce      json
// @Param        request body royaltyapp.GeneratePeriodRequest true "Period (YYYY-MM)"
// @Success      200 {object} dto.Response{data=royaltyapp.BatchResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /royalty/reports/batch [post]
func (h *RoyaltyHandler) GeneratePeriod(c *gin.Context) {
	var req royaltyapp.GeneratePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.royaltyService.GenerateForPeriod(c.Request.Context(), req.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
