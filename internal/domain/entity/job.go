package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/validation"
)

func NewJob(hirerID uuid.UUID, title, description string, budget decimal.Decimal, currency string, deadline *time.Time) (*models.Job, error) {
	if err := validation.ValidateJobTitle(title); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateJobDescription(description); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	money, err := valueobject.NewMoney(budget, currency)
	if err != nil {
		return nil, err
	}
	if err := valueobject.RequirePositive("бюджет", money.Amount); err != nil {
		return nil, err
	}
	if err := validation.ValidateCurrency(money.Currency); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if deadline != nil && deadline.Before(time.Now()) {
		return nil, apperror.Validation("дедлайн не может быть в прошлом")
	}

	now := time.Now()
	return &models.Job{
		ID:          uuid.New(),
		HirerID:     hirerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Budget:      money.Amount,
		Currency:    money.Currency,
		Status:      valueobject.OrderStatusOpen,
		DeadlineAt:  deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func NewApplication(jobID, freelancerID uuid.UUID, coverLetter string, proposedBudget decimal.Decimal, deliveryDays *int) (*models.JobApplication, error) {
	if err := validation.ValidateCoverLetter(coverLetter); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if _, err := valueobject.NewMoney(proposedBudget, ""); err != nil {
		return nil, err
	}
	if err := valueobject.RequirePositive("предложенная сумма", proposedBudget); err != nil {
		return nil, err
	}
	if deliveryDays != nil {
		if err := validation.ValidateDeliveryDays(*deliveryDays); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	now := time.Now()
	return &models.JobApplication{
		ID:             uuid.New(),
		JobID:          jobID,
		FreelancerID:   freelancerID,
		CoverLetter:    strings.TrimSpace(coverLetter),
		ProposedBudget: proposedBudget,
		DeliveryDays:   deliveryDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CheckApplicationPolicy проверяет бизнес-правила подачи отклика на заказ.
func CheckApplicationPolicy(job *models.Job, freelancerID uuid.UUID, proposedBudget decimal.Decimal) error {
	if job.Status != valueobject.OrderStatusOpen {
		return apperror.InvalidState("заказ не принимает отклики")
	}
	if job.HirerID == freelancerID {
		return apperror.PolicyViolation("нельзя откликнуться на собственный заказ")
	}
	if !valueobject.WithinBudgetCeiling(proposedBudget, job.Budget) {
		return apperror.PolicyViolation("предложенная сумма превышает бюджет заказа более чем на 20%")
	}
	return nil
}

// GigPackageInput - данные пакета при создании услуги.
type GigPackageInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	DeliveryDays int
}

func NewGig(freelancerID uuid.UUID, title, description, currency string, packages []GigPackageInput) (*models.Gig, error) {
	if err := validation.ValidateGigTitle(title); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if err := validation.ValidateCurrency(currency); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if len(packages) == 0 || len(packages) > validation.MaxGigPackages {
		return nil, apperror.Validation("услуга должна содержать от 1 до 3 пакетов")
	}

	now := time.Now()
	gig := &models.Gig{
		ID:           uuid.New(),
		FreelancerID: freelancerID,
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		Currency:     currency,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, p := range packages {
		if err := validation.ValidatePackageName(p.Name); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		if _, err := valueobject.NewMoney(p.Price, currency); err != nil {
			return nil, err
		}
		if err := valueobject.RequirePositive("цена пакета", p.Price); err != nil {
			return nil, err
		}
		if err := validation.ValidateDeliveryDays(p.DeliveryDays); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		gig.Packages = append(gig.Packages, models.GigPackage{
			ID:           uuid.New(),
			GigID:        gig.ID,
			Name:         strings.TrimSpace(p.Name),
			Description:  strings.TrimSpace(p.Description),
			Price:        p.Price,
			DeliveryDays: p.DeliveryDays,
			CreatedAt:    now,
		})
	}

	return gig, nil
}
