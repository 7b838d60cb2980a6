package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

func TestRefForPayment(t *testing.T) {
	jobID, orderID := uuid.New(), uuid.New()

	ref, err := RefForPayment(&models.Payment{JobID: &jobID})
	require.NoError(t, err)
	assert.Equal(t, OrderRef{Kind: OrderKindJob, ID: jobID}, ref)

	ref, err = RefForPayment(&models.Payment{GigOrderID: &orderID})
	require.NoError(t, err)
	assert.Equal(t, OrderKindGig, ref.Kind)

	_, err = RefForPayment(&models.Payment{JobID: &jobID, GigOrderID: &orderID})
	assert.Error(t, err)
	_, err = RefForPayment(&models.Payment{})
	assert.Error(t, err)
}

func TestJobOrder_TransitionTo(t *testing.T) {
	job := &models.Job{HirerID: uuid.New(), Status: valueobject.OrderStatusOpen}
	order := &JobOrder{Job: job}

	err := order.TransitionTo(valueobject.OrderStatusInProgress)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err), "исполнитель не назначен")

	freelancer := uuid.New()
	job.FreelancerID = &freelancer
	require.NoError(t, order.TransitionTo(valueobject.OrderStatusInProgress))

	payee, ok := order.PayeeID()
	assert.True(t, ok)
	assert.Equal(t, freelancer, payee)

	err = order.TransitionTo(valueobject.OrderStatusOpen)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))

	require.NoError(t, order.TransitionTo(valueobject.OrderStatusDisputed))
	require.NoError(t, order.TransitionTo(valueobject.OrderStatusCancelled))
	assert.Equal(t, freelancer, *job.FreelancerID)
}

func TestGigOrder_TransitionTo(t *testing.T) {
	order := &GigOrder{Order: &models.GigOrder{BuyerID: uuid.New(), FreelancerID: uuid.New(), Status: valueobject.OrderStatusInProgress}}

	require.NoError(t, order.TransitionTo(valueobject.OrderStatusCompleted))
	assert.Equal(t, valueobject.OrderStatusCompleted, order.Status())
	assert.Error(t, order.TransitionTo(valueobject.OrderStatusDisputed))
}
