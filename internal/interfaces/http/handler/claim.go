package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/rentledger/backend/internal/application/billing"
)

// ClaimHandler handles the bank-transfer claim workflow API endpoints
type ClaimHandler struct {
	BaseHandler
	reviewService *billingapp.TransferReviewService
	proofService  *billingapp.ProofUploadService
}

// NewClaimHandler creates a new ClaimHandler
func NewClaimHandler(reviewService *billingapp.TransferReviewService, proofService *billingapp.ProofUploadService) *ClaimHandler {
	return &ClaimHandler{
		reviewService: reviewService,
		proofService:  proofService,
	}
}

// ProofUploadRequest represents a request for a proof image upload slot
// @Description Request body for allocating a proof image upload URL
type ProofUploadRequest struct {
	ContentType string `json:"content_type" binding:"required" example:"image/jpeg"`
}

// SubmitClaim godoc
// @Summary      Submit a transfer claim
// @Description  Records the renter's assertion of a completed bank transfer and moves the invoice under review
// @Tags         claims
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      201 {object} dto.Response{data=billingapp.TransferClaimResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/claims [post]
func (h *ClaimHandler) SubmitClaim(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req billingapp.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("X-Idempotency-Key")
	}

	claim, err := h.reviewService.SubmitClaim(c.Request.Context(), tenantID, invoiceID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, claim)
}

// ListClaims godoc
// @Summary      List claims for an invoice
// @Description  Returns the full claim audit history of an invoice, oldest first
// @Tags         claims
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]billingapp.TransferClaimResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/claims [get]
func (h *ClaimHandler) ListClaims(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	claims, err := h.reviewService.ListClaims(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, claims)
}

// GetClaim godoc
// @Summary      Get a transfer claim by ID
// @Tags         claims
// @Produce      json
// @Param        id path string true "Claim ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.TransferClaimResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /claims/{id} [get]
func (h *ClaimHandler) GetClaim(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	claim, err := h.reviewService.GetClaim(c.Request.Context(), tenantID, claimID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, claim)
}

// ListPendingClaims godoc
// @Summary      List pending claims
// @Description  The landlord's review queue across all invoices, oldest submission first
// @Tags         claims
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]billingapp.TransferClaimResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /claims/pending [get]
func (h *ClaimHandler) ListPendingClaims(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter billingapp.PendingClaimsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	claims, total, err := h.reviewService.ListPendingClaims(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, claims, total, filter.Page, filter.PageSize)
}

// ReviewClaim godoc
// @Summary      Review a transfer claim
// @Description  Approves or rejects a pending claim. Approval settles the invoice; rejection reopens it.
// @Tags         claims
// @Accept       json
// @Produce      json
// @Param        id path string true "Claim ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.TransferClaimResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /claims/{id}/review [post]
func (h *ClaimHandler) ReviewClaim(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reviewerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Reviewer identity required")
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid claim ID format")
		return
	}

	var req billingapp.ReviewClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	claim, err := h.reviewService.ReviewClaim(c.Request.Context(), tenantID, claimID, reviewerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, claim)
}

// RequestProofUpload godoc
// @Summary      Request a proof image upload URL
// @Description  Allocates a presigned upload slot for a transfer proof image. The returned public URL goes on the claim.
// @Tags         claims
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.ProofUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/claims/proof-upload [post]
func (h *ClaimHandler) RequestProofUpload(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req ProofUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	upload, err := h.proofService.RequestUpload(c.Request.Context(), tenantID, invoiceID, req.ContentType)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, upload)
}
