package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUnitOfWork_Execute(t *testing.T) {
	db := setupBillingTestDB(t)
	database := &Database{DB: db}
	uow := NewGormUnitOfWork(database)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("commits claim and invoice together", func(t *testing.T) {
		inv := makeSentInvoice(t, tenantID, "INV-2026-050", 1000000, time.Now().AddDate(0, 0, 7))
		require.NoError(t, NewGormInvoiceRepository(db).Save(ctx, inv))

		var claimID uuid.UUID
		err := uow.Execute(ctx, func(invoices billing.InvoiceRepository, claims billing.TransferClaimRepository) error {
			loaded, err := invoices.FindByIDForTenant(ctx, tenantID, inv.ID)
			if err != nil {
				return err
			}

			claim := makeClaim(t, tenantID, loaded.ID)
			claimID = claim.ID
			if err := loaded.MarkTransferPending(claim.ID); err != nil {
				return err
			}
			if err := claims.Save(ctx, claim); err != nil {
				return err
			}
			return invoices.SaveWithLock(ctx, loaded)
		})
		require.NoError(t, err)

		found, err := NewGormInvoiceRepository(db).FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusTransferPending, found.Status)
		require.NotNil(t, found.PendingClaimID)
		assert.Equal(t, claimID, *found.PendingClaimID)

		claim, err := NewGormTransferClaimRepository(db).FindByID(ctx, claimID)
		require.NoError(t, err)
		require.NotNil(t, claim)
	})

	t.Run("rolls back all writes when fn fails", func(t *testing.T) {
		inv := makeSentInvoice(t, tenantID, "INV-2026-051", 1000000, time.Now().AddDate(0, 0, 7))
		require.NoError(t, NewGormInvoiceRepository(db).Save(ctx, inv))

		var claimID uuid.UUID
		err := uow.Execute(ctx, func(invoices billing.InvoiceRepository, claims billing.TransferClaimRepository) error {
			claim := makeClaim(t, tenantID, inv.ID)
			claimID = claim.ID
			if err := claims.Save(ctx, claim); err != nil {
				return err
			}
			if err := inv.MarkTransferPending(claim.ID); err != nil {
				return err
			}
			if err := invoices.SaveWithLock(ctx, inv); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.Error(t, err)

		// Neither write survived the rollback
		claim, err := NewGormTransferClaimRepository(db).FindByID(ctx, claimID)
		require.NoError(t, err)
		assert.Nil(t, claim)

		found, err := NewGormInvoiceRepository(db).FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusSent, found.Status)
		assert.Nil(t, found.PendingClaimID)
	})
}
