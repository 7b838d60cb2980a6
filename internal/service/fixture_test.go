package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
)

type fixture struct {
	store     *memStore
	gateway   *fakeGateway
	publisher *recordingPublisher
	admission *AdmissionService
	escrow    *EscrowService
	gigs      *GigService

	hirer      Actor
	freelancer Actor
	other      Actor
	admin      Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	gw := newFakeGateway()
	pub := &recordingPublisher{}
	f := &fixture{
		store:      store,
		gateway:    gw,
		publisher:  pub,
		admission:  NewAdmissionService(store, pub),
		escrow:     NewEscrowService(store, gw, pub, EscrowConfig{GatewayTimeout: time.Second}),
		gigs:       NewGigService(store, pub),
		hirer:      Actor{ID: uuid.New(), Role: valueobject.RoleHirer},
		freelancer: Actor{ID: uuid.New(), Role: valueobject.RoleFreelancer},
		other:      Actor{ID: uuid.New(), Role: valueobject.RoleFreelancer},
		admin:      Actor{ID: uuid.New(), Role: valueobject.RoleAdmin},
	}

	for i, a := range []Actor{f.hirer, f.freelancer, f.other, f.admin} {
		require.NoError(t, store.Users().Create(context.Background(), &models.User{
			ID:            a.ID,
			WalletAddress: uuid.NewString(),
			Username:      string(a.Role) + string(rune('a'+i)),
			Role:          a.Role,
			IsActive:      true,
		}))
	}
	return f
}

func (f *fixture) openJob(t *testing.T, budget string) *models.Job {
	t.Helper()
	job, err := f.admission.CreateJob(context.Background(), f.hirer, CreateJobInput{
		Title:       "Лендинг для NFT-коллекции",
		Description: "Нужен одностраничный сайт с подключением кошелька",
		Budget:      decimal.RequireFromString(budget),
	})
	require.NoError(t, err)
	return job
}

func (f *fixture) apply(t *testing.T, actor Actor, jobID uuid.UUID, proposed string) *models.JobApplication {
	t.Helper()
	app, err := f.admission.Apply(context.Background(), actor, jobID, ApplyInput{
		CoverLetter:    "Сделаю за неделю, есть похожие работы в портфолио",
		ProposedBudget: decimal.RequireFromString(proposed),
	})
	require.NoError(t, err)
	return app
}

// jobInProgress возвращает заказ с выбранным исполнителем f.freelancer.
func (f *fixture) jobInProgress(t *testing.T, budget string) *models.Job {
	t.Helper()
	job := f.openJob(t, budget)
	app := f.apply(t, f.freelancer, job.ID, budget)
	res, err := f.admission.Decide(context.Background(), f.hirer, job.ID, []Decision{{ApplicationID: app.ID, Accept: true}})
	require.NoError(t, err)
	return res.Job
}

func (f *fixture) pendingPayment(t *testing.T, amount string) *models.Payment {
	t.Helper()
	job := f.jobInProgress(t, amount)
	p, err := f.escrow.CreatePayment(context.Background(), f.hirer, CreatePaymentInput{JobID: job.ID})
	require.NoError(t, err)
	return p
}

func (f *fixture) fundedPayment(t *testing.T, amount string) *models.Payment {
	t.Helper()
	p := f.pendingPayment(t, amount)
	funded, err := f.escrow.Fund(context.Background(), f.hirer, p.ID)
	require.NoError(t, err)
	return funded
}

func (f *fixture) user(t *testing.T, id uuid.UUID) *models.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) job(t *testing.T, id uuid.UUID) *models.Job {
	t.Helper()
	j, err := f.store.Jobs().GetByID(context.Background(), id)
	require.NoError(t, err)
	return j
}

func (f *fixture) payment(t *testing.T, id uuid.UUID) *models.Payment {
	t.Helper()
	p, err := f.store.Payments().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
