package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestClaim(t *testing.T) *TransferClaim {
	claim, err := NewTransferClaim(uuid.New(), uuid.New(), "https://storage.example.com/proofs/abc.jpg", "paid this morning")
	require.NoError(t, err)
	return claim
}

func TestNewTransferClaim(t *testing.T) {
	t.Run("creates pending claim", func(t *testing.T) {
		claim := createTestClaim(t)

		assert.Equal(t, ReviewStatusPending, claim.ReviewStatus)
		assert.False(t, claim.SubmittedAt.IsZero())
		assert.Nil(t, claim.ReviewedBy)
		assert.Nil(t, claim.ReviewedAt)
		assert.Len(t, claim.GetDomainEvents(), 1)
	})

	t.Run("rejects empty invoice ID", func(t *testing.T) {
		_, err := NewTransferClaim(uuid.New(), uuid.Nil, "https://x/y.jpg", "")
		assert.Error(t, err)
	})

	t.Run("rejects empty proof URL", func(t *testing.T) {
		_, err := NewTransferClaim(uuid.New(), uuid.New(), "", "")
		assert.Error(t, err)
	})
}

func TestTransferClaim_Approve(t *testing.T) {
	t.Run("approves pending claim", func(t *testing.T) {
		claim := createTestClaim(t)
		reviewer := uuid.New()

		err := claim.Approve(reviewer, "matched bank statement")
		require.NoError(t, err)

		assert.Equal(t, ReviewStatusApproved, claim.ReviewStatus)
		require.NotNil(t, claim.ReviewedBy)
		assert.Equal(t, reviewer, *claim.ReviewedBy)
		require.NotNil(t, claim.ReviewedAt)
		assert.Equal(t, "matched bank statement", claim.ReviewNote)
	})

	t.Run("rejects double review", func(t *testing.T) {
		claim := createTestClaim(t)
		require.NoError(t, claim.Approve(uuid.New(), ""))

		assert.Equal(t, shared.ErrAlreadyReviewed, claim.Approve(uuid.New(), ""))
		assert.Equal(t, shared.ErrAlreadyReviewed, claim.Reject(uuid.New(), "changed my mind"))
	})

	t.Run("requires reviewer", func(t *testing.T) {
		claim := createTestClaim(t)
		assert.Error(t, claim.Approve(uuid.Nil, ""))
		assert.True(t, claim.IsPending())
	})
}

func TestTransferClaim_Reject(t *testing.T) {
	t.Run("rejects pending claim with reason", func(t *testing.T) {
		claim := createTestClaim(t)
		reviewer := uuid.New()

		err := claim.Reject(reviewer, "ảnh mờ")
		require.NoError(t, err)

		assert.Equal(t, ReviewStatusRejected, claim.ReviewStatus)
		assert.Equal(t, "ảnh mờ", claim.ReviewNote)
		require.NotNil(t, claim.ReviewedAt)
	})

	t.Run("requires a reason", func(t *testing.T) {
		claim := createTestClaim(t)
		assert.Error(t, claim.Reject(uuid.New(), ""))
		assert.True(t, claim.IsPending())
	})

	t.Run("rejects review after rejection", func(t *testing.T) {
		claim := createTestClaim(t)
		require.NoError(t, claim.Reject(uuid.New(), "wrong amount on slip"))

		assert.Equal(t, shared.ErrAlreadyReviewed, claim.Approve(uuid.New(), ""))
	})
}
