package handler

import (
	"time"

	franchiseapp "github.com/foodtruck/backend/internal/application/franchise"
	"github.com/foodtruck/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// FranchiseHandler serves franchise agreements
type FranchiseHandler struct {
	BaseHandler
	agreementService *franchiseapp.AgreementService
}

// NewFranchiseHandler creates a new FranchiseHandler
func NewFranchiseHandler(agreementService *franchiseapp.AgreementService) *FranchiseHandler {
	return &FranchiseHandler{agreementService: agreementService}
}

// RegisterRoutes registers the franchise routes on group
func (h *FranchiseHandler) RegisterRoutes(group *router.DomainGroup) {
	group.POST("/agreements", h.CreateAgreement)
	group.GET("/agreements/:id", h.GetAgreement)
	group.POST("/agreements/:id/close", h.CloseAgreement)
	group.GET("/franchisees/:franchiseeId/agreements", h.ListAgreements)
	group.GET("/franchisees/:franchiseeId/agreements/active", h.ActiveAgreement)
}

// CreateAgreement godoc
// @Summary      Create franchise agreement
// @Description  Register franchise terms. Omitted fee and share default to the standard terms. Periods of one franchisee may not overlap.
// @Tags         franchise
// @Accept       json
// @Produce      json
// @Param        request body franchiseapp.CreateAgreementRequest true "Agreement terms"
// @Success      201 {object} dto.Response{data=franchiseapp.AgreementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /franchise/agreements [post]
func (h *FranchiseHandler) CreateAgreement(c *gin.Context) {
	var req franchiseapp.CreateAgreementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	agreement, err := h.agreementService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, agreement)
}

// GetAgreement godoc
// @Summary      Get franchise agreement
// @Tags         franchise
// @Produce      json
// @Param        id path string true "Agreement ID" format(uuid)
// @Success      200 {object} dto.Response{data=franchiseapp.AgreementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /franchise/agreements/{id} [get]
func (h *FranchiseHandler) GetAgreement(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	agreement, err := h.agreementService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agreement)
}

// ListAgreements godoc
// @Summary      List franchise agreements
// @Description  Return every agreement of a franchisee
// @Tags         franchise
// @Produce      json
// @Param        franchiseeId path string true "Franchisee ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]franchiseapp.AgreementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /franchise/franchisees/{franchiseeId}/agreements [get]
func (h *FranchiseHandler) ListAgreements(c *gin.Context) {
	franchiseeID, ok := h.uuidParam(c, "franchiseeId")
	if !ok {
		return
	}

	agreements, err := h.agreementService.ListByFranchisee(c.Request.Context(), franchiseeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agreements)
}

// CloseAgreement godoc
// @Summary      Close franchise agreement
// @Description  Set the end date of an open agreement
// @Tags         franchise
// @Accept       json
// @Produce      json
// @Param        id path string true "Agreement ID" format(uuid)
// @Param        request body franchiseapp.CloseAgreementRequest true "End date"
// @Success      200 {object} dto.Response{data=franchiseapp.AgreementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /franchise/agreements/{id}/close [post]
func (h *FranchiseHandler) CloseAgreement(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req franchiseapp.CloseAgreementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	agreement, err := h.agreementService.Close(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agreement)
}

// ActiveAgreement godoc
// @Summary      Agreement in force
// @Description  Return the agreement of a franchisee in force at the given instant, now when at is omitted
// @Tags         franchise
// @Produce      json
// @Param        franchiseeId path string true "Franchisee ID" format(uuid)
// @Param        at query string false "Instant (RFC 3339)"
// @Success      200 {object} dto.Response{data=franchiseapp.AgreementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /franchise/franchisees/{franchiseeId}/agreements/active [get]
func (h *FranchiseHandler) ActiveAgreement(c *gin.Context) {
	franchiseeID, ok := h.uuidParam(c, "franchiseeId")
	if !ok {
		return
	}
	at := time.Now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Query parameter at must be an RFC 3339 timestamp")
			return
		}
		at = parsed
	}

	agreement, err := h.agreementService.ActiveAt(c.Request.Context(), franchiseeID, at)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agreement)
}
