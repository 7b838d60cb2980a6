package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskfi-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

func TestDispatcher_RejectsOrderWithOtherParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, "80")
	stranger := uuid.New()

	cases := map[string]func(job *models.Job){
		"другой исполнитель": func(job *models.Job) { job.FreelancerID = &stranger },
		"другой заказчик":    func(job *models.Job) { job.HirerID = stranger },
		"без исполнителя":    func(job *models.Job) { job.FreelancerID = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			job := f.job(t, *p.JobID)
			mutate(job)

			d := NewDispatcher(time.Hour)
			err := f.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
				payment := *p
				_, err := d.Apply(ctx, uow, Transition{
					Payment: &payment,
					Order:   &entity.JobOrder{Job: job},
					To:      valueobject.PaymentStatusEscrow,
					Actor:   f.hirer,
				})
				return err
			})
			assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))
			assert.Equal(t, valueobject.PaymentStatusPending, f.payment(t, p.ID).Status)
		})
	}
}

func TestDispatcher_AppliesMatchingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, "80")
	job := f.job(t, *p.JobID)

	d := NewDispatcher(time.Hour)
	require.NoError(t, f.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		_, err := d.Apply(ctx, uow, Transition{
			Payment:     p,
			Order:       &entity.JobOrder{Job: job},
			To:          valueobject.PaymentStatusEscrow,
			Actor:       f.hirer,
			Attestation: AttestationData{EscrowAddress: "escrow-1", TransactionHash: "tx-1"},
		})
		return err
	}))
	assert.Equal(t, valueobject.PaymentStatusEscrow, f.payment(t, p.ID).Status)
}
