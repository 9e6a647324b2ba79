package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReviewDecision is the landlord's verdict on a transfer claim
type ReviewDecision string

const (
	ReviewDecisionApprove ReviewDecision = "APPROVE"
	ReviewDecisionReject  ReviewDecision = "REJECT"
)

// IsValid checks if the decision is a valid ReviewDecision
func (d ReviewDecision) IsValid() bool {
	return d == ReviewDecisionApprove || d == ReviewDecisionReject
}

// TransferReviewService manages the bank-transfer claim workflow: the renter
// submits an unverified claim, the landlord approves or rejects it. Approval
// is the only path that settles a transfer-paid invoice.
type TransferReviewService struct {
	invoiceRepo    billing.InvoiceRepository
	claimRepo      billing.TransferClaimRepository
	uow            billing.UnitOfWork
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// TransferReviewServiceConfig holds the dependencies for TransferReviewService
type TransferReviewServiceConfig struct {
	InvoiceRepo       billing.InvoiceRepository
	ClaimRepo         billing.TransferClaimRepository
	UnitOfWork        billing.UnitOfWork
	IdempotencyStore  shared.IdempotencyStore
	IdempotencyConfig shared.IdempotencyConfig
	EventPublisher    shared.EventPublisher
	Logger            *zap.Logger
}

// NewTransferReviewService creates a new TransferReviewService
func NewTransferReviewService(config TransferReviewServiceConfig) *TransferReviewService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferReviewService{
		invoiceRepo:    config.InvoiceRepo,
		claimRepo:      config.ClaimRepo,
		uow:            config.UnitOfWork,
		idempotency:    config.IdempotencyStore,
		idempotencyCfg: config.IdempotencyConfig,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// TransferClaimResponse represents a transfer claim in API responses
type TransferClaimResponse struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	ProofImageURL string     `json:"proof_image_url"`
	Note          string     `json:"note,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewStatus  string     `json:"review_status"`
	ReviewedBy    *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote    string     `json:"review_note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Version       int        `json:"version"`
}

func toClaimResponse(c *billing.TransferClaim) *TransferClaimResponse {
	return &TransferClaimResponse{
		ID:            c.ID,
		TenantID:      c.TenantID,
		InvoiceID:     c.InvoiceID,
		ProofImageURL: c.ProofImageURL,
		Note:          c.Note,
		SubmittedAt:   c.SubmittedAt,
		ReviewStatus:  c.ReviewStatus.String(),
		ReviewedBy:    c.ReviewedBy,
		ReviewedAt:    c.ReviewedAt,
		ReviewNote:    c.ReviewNote,
		CreatedAt:     c.CreatedAt,
		Version:       c.Version,
	}
}

// SubmitClaimRequest is the input for submitting a transfer claim
type SubmitClaimRequest struct {
	ProofImageURL  string `json:"proof_image_url"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SubmitClaim records the renter's assertion of a completed bank transfer and
// moves the invoice under review. The claim and the invoice transition are
// committed together. A second submission while one claim is pending fails
// with a conflict; the claim is never silently queued.
func (s *TransferReviewService) SubmitClaim(ctx context.Context, tenantID, invoiceID uuid.UUID, req SubmitClaimRequest) (*TransferClaimResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_claim", "submit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	applied, err := s.markIdempotencyKey(ctx, "claim", invoiceID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !applied {
		s.logger.Info("Duplicate claim submission ignored",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("idempotency_key", req.IdempotencyKey))
		telemetry.AddEvent(span, "duplicate_claim_ignored")
		existing, err := s.claimRepo.FindPendingByInvoice(ctx, tenantID, invoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if existing == nil {
			return nil, shared.ErrNotFound
		}
		return toClaimResponse(existing), nil
	}

	var claim *billing.TransferClaim
	var inv *billing.Invoice

	err = s.uow.Execute(ctx, func(invoices billing.InvoiceRepository, claims billing.TransferClaimRepository) error {
		loaded, err := invoices.FindByIDForTenant(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if loaded == nil {
			return shared.ErrNotFound
		}

		created, err := billing.NewTransferClaim(tenantID, invoiceID, req.ProofImageURL, req.Note)
		if err != nil {
			return err
		}

		// The aggregate guard plus the partial unique index on pending
		// claims enforce the single-pending-claim invariant under races.
		if err := loaded.MarkTransferPending(created.ID); err != nil {
			return err
		}

		if err := claims.Save(ctx, created); err != nil {
			return err
		}
		if err := invoices.SaveWithLock(ctx, loaded); err != nil {
			return err
		}

		claim = created
		inv = loaded
		return nil
	})
	if err != nil {
		s.releaseIdempotencyKey(ctx, "claim", invoiceID, req.IdempotencyKey)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv, claim)

	telemetry.SetAttribute(span, telemetry.SpanAttrClaimID, claim.ID.String())

	s.logger.Info("Transfer claim submitted",
		zap.String("claim_id", claim.ID.String()),
		zap.String("invoice_id", invoiceID.String()))

	return toClaimResponse(claim), nil
}

// ReviewClaimRequest is the input for reviewing a transfer claim
type ReviewClaimRequest struct {
	Decision   ReviewDecision `json:"decision"`
	ReviewNote string         `json:"review_note"`
}

// ReviewClaim resolves a pending claim. Approval settles the invoice as paid
// by bank transfer; rejection reopens it so the renter can pay again. Both
// the claim and the invoice are committed together.
func (s *TransferReviewService) ReviewClaim(ctx context.Context, tenantID, claimID, reviewerID uuid.UUID, req ReviewClaimRequest) (*TransferClaimResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_claim", "review")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrClaimID, claimID.String(),
		telemetry.SpanAttrReviewerID, reviewerID.String(),
		"decision", string(req.Decision),
	)

	if !req.Decision.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown review decision %q", req.Decision))
	}

	var claim *billing.TransferClaim
	var inv *billing.Invoice

	err := s.uow.Execute(ctx, func(invoices billing.InvoiceRepository, claims billing.TransferClaimRepository) error {
		loaded, err := claims.FindByIDForTenant(ctx, tenantID, claimID)
		if err != nil {
			return err
		}
		if loaded == nil {
			return shared.ErrNotFound
		}

		invoice, err := invoices.FindByIDForTenant(ctx, tenantID, loaded.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.ErrNotFound
		}

		switch req.Decision {
		case ReviewDecisionApprove:
			if err := loaded.Approve(reviewerID, req.ReviewNote); err != nil {
				return err
			}
			if err := invoice.SettleByTransfer(loaded.ID); err != nil {
				return err
			}
		case ReviewDecisionReject:
			if err := loaded.Reject(reviewerID, req.ReviewNote); err != nil {
				return err
			}
			if err := invoice.ReopenAfterRejection(loaded.ID); err != nil {
				return err
			}
		}

		if err := claims.SaveWithLock(ctx, loaded); err != nil {
			return err
		}
		if err := invoices.SaveWithLock(ctx, invoice); err != nil {
			return err
		}

		claim = loaded
		inv = invoice
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv, claim)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrClaimStatus, claim.ReviewStatus.String(),
		telemetry.SpanAttrInvoiceStatus, inv.Status.String(),
	)

	s.logger.Info("Transfer claim reviewed",
		zap.String("claim_id", claim.ID.String()),
		zap.String("invoice_id", claim.InvoiceID.String()),
		zap.String("decision", string(req.Decision)))

	return toClaimResponse(claim), nil
}

// GetClaim gets a claim by ID
func (s *TransferReviewService) GetClaim(ctx context.Context, tenantID, claimID uuid.UUID) (*TransferClaimResponse, error) {
	claim, err := s.claimRepo.FindByIDForTenant(ctx, tenantID, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, shared.ErrNotFound
	}
	return toClaimResponse(claim), nil
}

// ListClaims returns the full audit history for an invoice, ordered by
// submission time. Resolved claims are included; they are never deleted.
func (s *TransferReviewService) ListClaims(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]TransferClaimResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}

	claims, err := s.claimRepo.ListByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	responses := make([]TransferClaimResponse, len(claims))
	for i := range claims {
		responses[i] = *toClaimResponse(&claims[i])
	}
	return responses, nil
}

// PendingClaimsFilter defines filtering options for the review queue
type PendingClaimsFilter struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// ListPendingClaims returns the landlord's review queue across all invoices
func (s *TransferReviewService) ListPendingClaims(ctx context.Context, tenantID uuid.UUID, filter PendingClaimsFilter) ([]TransferClaimResponse, int64, error) {
	pending := billing.ReviewStatusPending
	domainFilter := billing.TransferClaimFilter{ReviewStatus: &pending}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.OrderBy = "submitted_at"
	domainFilter.OrderDir = "asc"

	claims, err := s.claimRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.claimRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransferClaimResponse, len(claims))
	for i := range claims {
		responses[i] = *toClaimResponse(&claims[i])
	}
	return responses, total, nil
}

func (s *TransferReviewService) markIdempotencyKey(ctx context.Context, operation string, invoiceID uuid.UUID, key string) (bool, error) {
	if key == "" || s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return true, nil
	}
	fullKey := fmt.Sprintf("billing:%s:%s:%s", operation, invoiceID, key)
	return s.idempotency.MarkProcessed(ctx, fullKey, s.idempotencyCfg.TTL)
}

// releaseIdempotencyKey frees a consumed key after the submission failed so a
// corrected retry with the same key is not mistaken for a duplicate
func (s *TransferReviewService) releaseIdempotencyKey(ctx context.Context, operation string, invoiceID uuid.UUID, key string) {
	if key == "" || s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return
	}
	fullKey := fmt.Sprintf("billing:%s:%s:%s", operation, invoiceID, key)
	if err := s.idempotency.Release(ctx, fullKey); err != nil {
		s.logger.Warn("Failed to release idempotency key",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

func (s *TransferReviewService) publishEvents(ctx context.Context, inv *billing.Invoice, claim *billing.TransferClaim) {
	if s.eventPublisher == nil {
		return
	}
	var events []shared.DomainEvent
	if claim != nil {
		events = append(events, claim.GetDomainEvents()...)
	}
	if inv != nil {
		events = append(events, inv.GetDomainEvents()...)
	}
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish claim events", zap.Error(err))
	}
	if claim != nil {
		claim.ClearDomainEvents()
	}
	if inv != nil {
		inv.ClearDomainEvents()
	}
}
