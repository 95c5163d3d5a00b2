package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormRepository(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive for the test
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewGormRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func TestRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) Repository{
		"InMemory": func(t *testing.T) Repository { return NewInMemoryRepository() },
		"Gorm":     func(t *testing.T) Repository { return newGormRepository(t) },
	}

	for name, newRepo := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("CreateAndFind", func(t *testing.T) {
				repo := newRepo(t)
				order := &CheckoutOrder{OrderID: "ORDER-1", Intent: "AUTHORIZE", PaymentMethodID: 7}
				require.NoError(t, repo.Create(ctx, order))
				require.NotZero(t, order.ID)
				assert.False(t, order.CreatedAt.IsZero())

				found, err := repo.FindByOrderID(ctx, "ORDER-1")
				require.NoError(t, err)
				assert.Equal(t, order.ID, found.ID)
				assert.Equal(t, "AUTHORIZE", found.Intent)
				assert.Equal(t, uint(7), found.PaymentMethodID)

				_, err = repo.FindByOrderID(ctx, "missing")
				assert.ErrorIs(t, err, ErrRecordNotFound)
				_, err = repo.FindByAuthorizationID(ctx, "")
				assert.ErrorIs(t, err, ErrRecordNotFound)
			})

			t.Run("SaveUpdatesFieldsAndLedger", func(t *testing.T) {
				repo := newRepo(t)
				order := &CheckoutOrder{OrderID: "ORDER-2"}
				require.NoError(t, repo.Create(ctx, order))

				order.AuthorizationID = "AUTH-2"
				order.AuthorizationStatus = StatusCompleted
				order.CaptureID = "CAP-2"
				order.CaptureStatus = StatusCompleted
				require.NoError(t, repo.Save(ctx, order))
				assert.Equal(t, 1, order.Version)

				byAuth, err := repo.FindByAuthorizationID(ctx, "AUTH-2")
				require.NoError(t, err)
				assert.Equal(t, "CAP-2", byAuth.CaptureID)

				byCapture, err := repo.FindByCaptureID(ctx, "CAP-2")
				require.NoError(t, err)
				byCapture.AppendRefund(Refund{RefundID: "R-1", RefundStatus: StatusCompleted})
				require.NoError(t, repo.Save(ctx, byCapture))
				byCapture.AppendRefund(Refund{RefundID: "R-2", RefundStatus: StatusCompleted})
				require.NoError(t, repo.Save(ctx, byCapture))

				reloaded, err := repo.FindByID(ctx, order.ID)
				require.NoError(t, err)
				require.Len(t, reloaded.Refunds, 2)
				assert.Equal(t, "R-1", reloaded.Refunds[0].RefundID)
				assert.Equal(t, "R-2", reloaded.Refunds[1].RefundID)
				assert.Equal(t, StateRefunded, reloaded.State())
			})

			t.Run("SaveRejectsStaleVersion", func(t *testing.T) {
				repo := newRepo(t)
				order := &CheckoutOrder{OrderID: "ORDER-3"}
				require.NoError(t, repo.Create(ctx, order))

				first, err := repo.FindByID(ctx, order.ID)
				require.NoError(t, err)
				second, err := repo.FindByID(ctx, order.ID)
				require.NoError(t, err)

				first.AppendRefund(Refund{RefundID: "R-A"})
				require.NoError(t, repo.Save(ctx, first))

				second.AppendRefund(Refund{RefundID: "R-B"})
				assert.ErrorIs(t, repo.Save(ctx, second), ErrStaleRecord)
			})

			t.Run("SaveMissingRecord", func(t *testing.T) {
				repo := newRepo(t)
				assert.ErrorIs(t, repo.Save(ctx, &CheckoutOrder{ID: 99}), ErrRecordNotFound)
			})
		})
	}
}
