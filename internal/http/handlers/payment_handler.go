package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/dto"
	"github.com/ignatzorin/taskfi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

// PaymentHandler обрабатывает HTTP запросы для платежей и escrow.
type PaymentHandler struct {
	payments EscrowAPI
}

// NewPaymentHandler создаёт новый PaymentHandler.
func NewPaymentHandler(payments EscrowAPI) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreatePayment обрабатывает POST /payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), actor, service.CreatePaymentInput{
		JobID:  req.JobID,
		Amount: req.Amount,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPayment обрабатывает GET /payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// History обрабатывает GET /payments/:id/history.
func (h *PaymentHandler) History(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.payments.History(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// FundEscrow обрабатывает POST /payments/:id/escrow: PENDING -> ESCROW.
func (h *PaymentHandler) FundEscrow(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.Fund(c.Request.Context(), actor, id)
	h.respondPayment(c, payment, err)
}

// UpdateEscrow обрабатывает PUT /payments/:id/escrow с action release или dispute.
func (h *PaymentHandler) UpdateEscrow(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.EscrowActionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	var (
		payment *models.Payment
		err     error
	)
	switch req.Action {
	case "release":
		payment, err = h.payments.Release(c.Request.Context(), actor, id)
	case "dispute":
		payment, err = h.payments.Dispute(c.Request.Context(), actor, id, req.Reason)
	default:
		err = apperror.Validation("action должен быть release или dispute")
	}
	h.respondPayment(c, payment, err)
}

// UpdatePayment обрабатывает PUT /payments/:id: общий вход для любого перехода статуса.
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePaymentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	to, err := valueobject.NewPaymentStatus(req.Status)
	if err != nil {
		common.RespondAppError(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.payments.Transition(c.Request.Context(), actor, id, service.TransitionInput{
		To:          to,
		Reason:      req.Reason,
		PayerAmount: req.PayerAmount,
		PayeeAmount: req.PayeeAmount,
	})
	h.respondPayment(c, payment, err)
}

func (h *PaymentHandler) respondPayment(c *gin.Context, payment *models.Payment, err error) {
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
