package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/rentledger/backend/internal/application/billing"
)

func TestClaimHandler_SubmitClaim(t *testing.T) {
	f := setupHandlerTest(t)

	t.Run("submits a claim and moves the invoice under review", func(t *testing.T) {
		inv := f.createSent(t, 3_000_000)

		claim := f.submitClaim(t, inv.ID)
		assert.Equal(t, "PENDING", claim.ReviewStatus)
		assert.Equal(t, inv.ID, claim.InvoiceID)

		w := f.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got billingapp.InvoiceResponse
		decodeData(t, w, &got)
		assert.Equal(t, "TRANSFER_PENDING", got.Status)
		require.NotNil(t, got.PendingClaimID)
		assert.Equal(t, claim.ID, *got.PendingClaimID)
	})

	t.Run("second submission conflicts while one is pending", func(t *testing.T) {
		inv := f.createSent(t, 3_000_000)
		f.submitClaim(t, inv.ID)

		w := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/claims", billingapp.SubmitClaimRequest{
			ProofImageURL: "https://storage.example.com/proofs/second.jpg",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_CLAIM_ALREADY_PENDING", env.Error.Code)
	})

	t.Run("draft invoices cannot receive claims", func(t *testing.T) {
		inv := f.createDraft(t, 3_000_000)

		w := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/claims", billingapp.SubmitClaimRequest{
			ProofImageURL: "https://storage.example.com/proofs/slip.jpg",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown invoice is 404", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/invoices/"+uuid.NewString()+"/claims", billingapp.SubmitClaimRequest{
			ProofImageURL: "https://storage.example.com/proofs/slip.jpg",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("failed submission does not burn the idempotency key", func(t *testing.T) {
		inv := f.createDraft(t, 3_000_000)
		req := billingapp.SubmitClaimRequest{
			ProofImageURL:  "https://storage.example.com/proofs/slip.jpg",
			IdempotencyKey: "claim-after-issue",
		}

		early := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/claims", req)
		require.Equal(t, http.StatusUnprocessableEntity, early.Code)

		issue := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/issue", nil)
		require.Equal(t, http.StatusOK, issue.Code)

		retry := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/claims", req)
		require.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())
		var claim billingapp.TransferClaimResponse
		decodeData(t, retry, &claim)
		assert.Equal(t, "PENDING", claim.ReviewStatus)
	})
}

func TestClaimHandler_ReviewClaim(t *testing.T) {
	f := setupHandlerTest(t)

	t.Run("approval settles the invoice", func(t *testing.T) {
		inv := f.createSent(t, 2_000_000)
		claim := f.submitClaim(t, inv.ID)

		w := f.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/review", billingapp.ReviewClaimRequest{
			Decision:   billingapp.ReviewDecisionApprove,
			ReviewNote: "matches the bank statement",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var reviewed billingapp.TransferClaimResponse
		decodeData(t, w, &reviewed)
		assert.Equal(t, "APPROVED", reviewed.ReviewStatus)
		require.NotNil(t, reviewed.ReviewedBy)
		assert.Equal(t, f.userID, *reviewed.ReviewedBy)

		got := f.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)
		var paid billingapp.InvoiceResponse
		decodeData(t, got, &paid)
		assert.Equal(t, "PAID", paid.Status)
		assert.Equal(t, "BANK_TRANSFER", paid.PaymentMethod)
	})

	t.Run("rejection reopens the invoice", func(t *testing.T) {
		inv := f.createSent(t, 2_000_000)
		claim := f.submitClaim(t, inv.ID)

		w := f.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/review", billingapp.ReviewClaimRequest{
			Decision:   billingapp.ReviewDecisionReject,
			ReviewNote: "no matching transfer found",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var reviewed billingapp.TransferClaimResponse
		decodeData(t, w, &reviewed)
		assert.Equal(t, "REJECTED", reviewed.ReviewStatus)

		got := f.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)
		var reopened billingapp.InvoiceResponse
		decodeData(t, got, &reopened)
		assert.Equal(t, "SENT", reopened.Status)
		assert.Nil(t, reopened.PendingClaimID)
	})

	t.Run("double review conflicts", func(t *testing.T) {
		inv := f.createSent(t, 2_000_000)
		claim := f.submitClaim(t, inv.ID)

		first := f.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/review", billingapp.ReviewClaimRequest{
			Decision: billingapp.ReviewDecisionApprove,
		})
		require.Equal(t, http.StatusOK, first.Code)

		second := f.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/review", billingapp.ReviewClaimRequest{
			Decision: billingapp.ReviewDecisionReject,
		})

		assert.Equal(t, http.StatusConflict, second.Code)
		env := decodeEnvelope(t, second)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_ALREADY_REVIEWED", env.Error.Code)
	})

	t.Run("unknown decision is rejected", func(t *testing.T) {
		inv := f.createSent(t, 2_000_000)
		claim := f.submitClaim(t, inv.ID)

		w := f.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/review", map[string]string{
			"decision": "MAYBE",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestClaimHandler_ListClaims(t *testing.T) {
	f := setupHandlerTest(t)
	inv := f.createSent(t, 2_000_000)

	claim := f.submitClaim(t, inv.ID)
	w := f.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/review", billingapp.ReviewClaimRequest{
		Decision: billingapp.ReviewDecisionReject,
	})
	require.Equal(t, http.StatusOK, w.Code)
	f.submitClaim(t, inv.ID)

	t.Run("returns the full audit history", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String()+"/claims", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var claims []billingapp.TransferClaimResponse
		decodeData(t, w, &claims)
		require.Len(t, claims, 2)
		assert.Equal(t, "REJECTED", claims[0].ReviewStatus)
		assert.Equal(t, "PENDING", claims[1].ReviewStatus)
	})

	t.Run("get claim by id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/claims/"+claim.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got billingapp.TransferClaimResponse
		decodeData(t, w, &got)
		assert.Equal(t, claim.ID, got.ID)
	})
}

func TestClaimHandler_ListPendingClaims(t *testing.T) {
	f := setupHandlerTest(t)
	for i := 0; i < 3; i++ {
		inv := f.createSent(t, 1_000_000)
		f.submitClaim(t, inv.ID)
	}

	w := f.do(t, http.MethodGet, "/api/v1/claims/pending?page=1&page_size=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var claims []billingapp.TransferClaimResponse
	env := decodeData(t, w, &claims)
	assert.Len(t, claims, 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
}

func TestClaimHandler_RequestProofUpload(t *testing.T) {
	f := setupHandlerTest(t)
	inv := f.createSent(t, 1_000_000)

	t.Run("allocates an upload slot", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/claims/proof-upload", ProofUploadRequest{
			ContentType: "image/jpeg",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var upload billingapp.ProofUploadResponse
		decodeData(t, w, &upload)
		assert.NotEmpty(t, upload.UploadURL)
		assert.Contains(t, upload.StorageKey, inv.ID.String())
		assert.Contains(t, upload.PublicURL, upload.StorageKey)
	})

	t.Run("unsupported content type is rejected", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/claims/proof-upload", ProofUploadRequest{
			ContentType: "application/pdf",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_INVALID_INPUT", env.Error.Code)
	})
}
