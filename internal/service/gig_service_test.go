package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskfi-backend/internal/domain/entity"
	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

func (f *fixture) createGig(t *testing.T) *models.Gig {
	t.Helper()
	gig, err := f.gigs.CreateGig(context.Background(), f.freelancer, CreateGigInput{
		Title:       "Аудит смарт-контракта",
		Description: "Проверю программу на типовые уязвимости",
		Packages: []entity.GigPackageInput{
			{Name: "Базовый", Price: dec("200"), DeliveryDays: 3},
			{Name: "Расширенный", Price: dec("450"), DeliveryDays: 7},
		},
	})
	require.NoError(t, err)
	return gig
}

func TestGigService_CreateGig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gig := f.createGig(t)
	stored, err := f.gigs.GetGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Packages, 2)
	assert.True(t, stored.IsActive)

	_, err = f.gigs.CreateGig(ctx, f.hirer, CreateGigInput{Title: "Услуга", Packages: []entity.GigPackageInput{{Name: "A", Price: dec("1"), DeliveryDays: 1}}})
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.CodeOf(err))

	_, err = f.gigs.CreateGig(ctx, f.freelancer, CreateGigInput{Title: "Услуга"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.CodeOf(err))
}

func TestGigService_Purchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gig := f.createGig(t)
	pkg := gig.Packages[1]

	res, err := f.gigs.Purchase(ctx, f.hirer, gig.ID, pkg.ID)
	require.NoError(t, err)

	assert.Equal(t, valueobject.OrderStatusInProgress, res.Order.Status)
	assert.Equal(t, f.hirer.ID, res.Order.BuyerID)
	assert.True(t, res.Order.Amount.Equal(pkg.Price))

	require.NotNil(t, res.Payment.GigOrderID)
	assert.Nil(t, res.Payment.JobID)
	assert.Equal(t, res.Order.ID, *res.Payment.GigOrderID)
	assert.Equal(t, valueobject.PaymentStatusPending, res.Payment.Status)
	assert.Equal(t, f.freelancer.ID, res.Payment.PayeeID)

	ordered := f.publisher.ofType(models.NotificationGigOrdered)
	require.Len(t, ordered, 1)
	assert.Equal(t, f.freelancer.ID, ordered[0].UserID)
}

func TestGigService_PurchaseRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gig := f.createGig(t)

	_, err := f.gigs.Purchase(ctx, f.other, gig.ID, gig.Packages[0].ID)
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.CodeOf(err))

	_, err = f.gigs.Purchase(ctx, f.hirer, gig.ID, uuid.New())
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.gigs.Purchase(ctx, f.hirer, uuid.New(), gig.Packages[0].ID)
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, f.store.snapshot().orders)
}
