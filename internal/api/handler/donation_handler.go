package handler

import (
	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/response"
)

// DonationHandler 捐赠模块 HTTP 处理器
type DonationHandler struct {
	donationSvc service.DonationService
}

// NewDonationHandler 创建 DonationHandler
func NewDonationHandler(donationSvc service.DonationService) *DonationHandler {
	return &DonationHandler{donationSvc: donationSvc}
}

// ── 分类 ──

// ListSections 捐赠分类列表（含已筹金额）
// GET /api/v1/donation-sections?active_only=
func (h *DonationHandler) ListSections(c *gin.Context) {
	var req dto.DonationSectionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, err := h.donationSvc.ListSections(c.Request.Context(), req.ActiveOnly)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, list)
}

// CreateSection 创建分类（管理员）
// POST /api/v1/donation-sections
func (h *DonationHandler) CreateSection(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateDonationSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	section, err := h.donationSvc.CreateSection(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, section)
}

// UpdateSection 更新分类（管理员）
// PUT /api/v1/donation-sections/:id
func (h *DonationHandler) UpdateSection(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateDonationSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	section, err := h.donationSvc.UpdateSection(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, section)
}

// DeleteSection 删除分类（管理员；已有捐赠记录的分类不可删除）
// DELETE /api/v1/donation-sections/:id
func (h *DonationHandler) DeleteSection(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.donationSvc.DeleteSection(c.Request.Context(), id, callerID); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "分类已删除"})
}

// ── 捐赠 ──

// Donate 捐赠
// POST /api/v1/donations
func (h *DonationHandler) Donate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	donation, err := h.donationSvc.Donate(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, donation)
}

// ListMyDonations 我的捐赠
// GET /api/v1/donations/me
func (h *DonationHandler) ListMyDonations(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.donationSvc.ListMyDonations(c.Request.Context(), userID, &page)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ListDonations 全部捐赠记录（管理员）
// GET /api/v1/donations?section_id=&page=&page_size=
func (h *DonationHandler) ListDonations(c *gin.Context) {
	var req dto.DonationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.donationSvc.ListDonations(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
