package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
)

var assignQuery = regexp.QuoteMeta("WHERE id = $1 AND status = $4 AND freelancer_id IS NULL")

func TestJobRepository_AssignFreelancer(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)
	jobID, freelancerID := uuid.New(), uuid.New()

	mock.ExpectExec(assignQuery).
		WithArgs(jobID, freelancerID, valueobject.OrderStatusInProgress, valueobject.OrderStatusOpen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.AssignFreelancer(context.Background(), jobID, freelancerID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobRepository_AssignFreelancerLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)
	jobID, freelancerID := uuid.New(), uuid.New()

	mock.ExpectExec(assignQuery).
		WithArgs(jobID, freelancerID, valueobject.OrderStatusInProgress, valueobject.OrderStatusOpen).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.AssignFreelancer(context.Background(), jobID, freelancerID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobRepository_AssignFreelancerDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	mock.ExpectExec(assignQuery).WillReturnError(errors.New("connection reset"))

	_, err := repo.AssignFreelancer(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job repository: assign freelancer")
}

func TestJobRepository_UpdateStatusChecksFrom(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)
	jobID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $3")).
		WithArgs(jobID, valueobject.OrderStatusOpen, valueobject.OrderStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateStatus(context.Background(), jobID, valueobject.OrderStatusOpen, valueobject.OrderStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)
}
