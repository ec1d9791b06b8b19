package handler

import (
	procurementapp "github.com/foodtruck/backend/internal/application/procurement"
	"github.com/foodtruck/backend/internal/interfaces/http/dto"
	"github.com/foodtruck/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// ProcurementHandler serves purchase orders and ratio previews
type ProcurementHandler struct {
	BaseHandler
	orderService *procurementapp.PurchaseOrderService
}

// NewProcurementHandler creates a new ProcurementHandler
func NewProcurementHandler(orderService *procurementapp.PurchaseOrderService) *ProcurementHandler {
	return &ProcurementHandler{orderService: orderService}
}

// RegisterRoutes registers the procurement routes on group
func (h *ProcurementHandler) RegisterRoutes(group *router.DomainGroup) {
	group.POST("/ratios", h.PreviewRatios)
	group.POST("/orders", h.CreateOrder)
	group.GET("/orders", h.ListOrders)
	group.GET("/orders/:id", h.GetOrder)
	group.POST("/orders/:id/lines", h.AddLine)
	group.PUT("/orders/:id/lines/:lineId", h.UpdateLine)
	group.DELETE("/orders/:id/lines/:lineId", h.RemoveLine)
	group.POST("/orders/:id/submit", h.SubmitOrder)
	group.POST("/orders/:id/transitions", h.TransitionOrder)
}

// PreviewRatios godoc
// @Summary      Preview procurement ratios
// @Description  Compute the core/free split of a line payload without storing anything
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        request body procurementapp.RatioPreviewRequest true "Lines"
// @Success      200 {object} dto.Response{data=procurementapp.RatioResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/ratios [post]
func (h *ProcurementHandler) PreviewRatios(c *gin.Context) {
	var req procurementapp.RatioPreviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ratios, err := h.orderService.PreviewRatios(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ratios)
}

// CreateOrder godoc
// @Summary      Create purchase order
// @Description  Open a draft order for the calling actor
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string true "Acting user" format(uuid)
// @Param        request body procurementapp.CreatePurchaseOrderRequest true "Order header and lines"
// @Success      201 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders [post]
func (h *ProcurementHandler) CreateOrder(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req procurementapp.CreatePurchaseOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ListOrders godoc
// @Summary      List purchase orders
// @Description  List orders by franchisee and status
// @Tags         procurement
// @Produce      json
// @Param        franchisee_id query string false "Franchisee ID" format(uuid)
// @Param        status query string false "Order status" Enums(DRAFT, SUBMITTED, PREPARING, READY, DELIVERED, CANCELLED)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Sort field" Enums(created_at, updated_at, order_number, total_excl_tax)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]procurementapp.PurchaseOrderResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders [get]
func (h *ProcurementHandler) ListOrders(c *gin.Context) {
	var filter procurementapp.PurchaseOrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page := dto.NormalizePagination(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, orders, total, page.Page, page.PageSize)
}

// GetOrder godoc
// @Summary      Get purchase order
// @Description  Return one order with its lines
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders/{id} [get]
func (h *ProcurementHandler) GetOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// AddLine godoc
// @Summary      Add order line
// @Description  Append a line to a draft order
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body procurementapp.AddLineRequest true "Line"
// @Success      201 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders/{id}/lines [post]
func (h *ProcurementHandler) AddLine(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req procurementapp.AddLineRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.AddLine(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// UpdateLine godoc
// @Summary      Update order line
// @Description  Change a line of a draft order
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        lineId path string true "Line ID" format(uuid)
// @Param        request body procurementapp.UpdateLineRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders/{id}/lines/{lineId} [put]
func (h *ProcurementHandler) UpdateLine(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "lineId")
	if !ok {
		return
	}
	var req procurementapp.UpdateLineRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateLine(c.Request.Context(), id, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RemoveLine godoc
// @Summary      Remove order line
// @Description  Delete a line from a draft order
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        lineId path string true "Line ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders/{id}/lines/{lineId} [delete]
func (h *ProcurementHandler) RemoveLine(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "lineId")
	if !ok {
		return
	}

	order, err := h.orderService.RemoveLine(c.Request.Context(), id, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// SubmitOrder godoc
// @Summary      Submit purchase order
// @Description  Submit a draft order for approval. Rejected when the core ratio is below the required minimum.
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders/{id}/submit [post]
func (h *ProcurementHandler) SubmitOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Submit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// TransitionOrder godoc
// @Summary      Transition purchase order
// @Description  Apply a named lifecycle event (approve, reject, mark-ready, mark-delivered)
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        X-Actor-ID header string true "Acting user" format(uuid)
// @Param        X-Actor-Capabilities header string false "Comma-separated capabilities"
// @Param        request body procurementapp.TransitionRequest true "Event"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /procurement/orders/{id}/transitions [post]
func (h *ProcurementHandler) TransitionOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req procurementapp.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Transition(c.Request.Context(), id, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
