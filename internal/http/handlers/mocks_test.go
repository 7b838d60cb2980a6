package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

type mockAdmission struct{ mock.Mock }

func (m *mockAdmission) CreateJob(ctx context.Context, actor service.Actor, in service.CreateJobInput) (*models.Job, error) {
	args := m.Called(ctx, actor, in)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockAdmission) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockAdmission) CancelJob(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, actor, jobID)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockAdmission) ListApplications(ctx context.Context, actor service.Actor, jobID uuid.UUID) ([]models.JobApplication, error) {
	args := m.Called(ctx, actor, jobID)
	apps, _ := args.Get(0).([]models.JobApplication)
	return apps, args.Error(1)
}

func (m *mockAdmission) Apply(ctx context.Context, actor service.Actor, jobID uuid.UUID, in service.ApplyInput) (*models.JobApplication, error) {
	args := m.Called(ctx, actor, jobID, in)
	app, _ := args.Get(0).(*models.JobApplication)
	return app, args.Error(1)
}

func (m *mockAdmission) Decide(ctx context.Context, actor service.Actor, jobID uuid.UUID, decisions []service.Decision) (*service.DecideResult, error) {
	args := m.Called(ctx, actor, jobID, decisions)
	res, _ := args.Get(0).(*service.DecideResult)
	return res, args.Error(1)
}

func (m *mockAdmission) DecideSingle(ctx context.Context, actor service.Actor, jobID, applicationID uuid.UUID, accept bool) (*models.JobApplication, error) {
	args := m.Called(ctx, actor, jobID, applicationID, accept)
	app, _ := args.Get(0).(*models.JobApplication)
	return app, args.Error(1)
}

type mockEscrow struct{ mock.Mock }

func (m *mockEscrow) payment(args mock.Arguments) (*models.Payment, error) {
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *mockEscrow) CreatePayment(ctx context.Context, actor service.Actor, in service.CreatePaymentInput) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, in))
}

func (m *mockEscrow) GetPayment(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id))
}

func (m *mockEscrow) History(ctx context.Context, actor service.Actor, id uuid.UUID) ([]models.PaymentHistory, error) {
	args := m.Called(ctx, actor, id)
	h, _ := args.Get(0).([]models.PaymentHistory)
	return h, args.Error(1)
}

func (m *mockEscrow) Fund(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id))
}

func (m *mockEscrow) Release(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id))
}

func (m *mockEscrow) Dispute(ctx context.Context, actor service.Actor, id uuid.UUID, reason string) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, reason))
}

func (m *mockEscrow) Refund(ctx context.Context, actor service.Actor, id uuid.UUID, payerAmount, payeeAmount decimal.Decimal) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, payerAmount, payeeAmount))
}

func (m *mockEscrow) Transition(ctx context.Context, actor service.Actor, id uuid.UUID, in service.TransitionInput) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, in))
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	n, _ := args.Get(0).([]models.Notification)
	return n, args.Error(1)
}

func (m *mockNotifications) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotifications) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockNotifications) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
