package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskfi-backend/internal/domain/entity"
	"github.com/ignatzorin/taskfi-backend/internal/dto"
	"github.com/ignatzorin/taskfi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

// GigHandler обслуживает маршруты услуг.
type GigHandler struct {
	gigs GigAPI
}

func NewGigHandler(gigs GigAPI) *GigHandler {
	return &GigHandler{gigs: gigs}
}

// CreateGig обрабатывает POST /gigs.
func (h *GigHandler) CreateGig(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req dto.CreateGigRequest
	if !common.BindJSON(c, &req) {
		return
	}

	packages := make([]entity.GigPackageInput, 0, len(req.Packages))
	for _, p := range req.Packages {
		packages = append(packages, entity.GigPackageInput{
			Name:         p.Name,
			Description:  p.Description,
			Price:        *p.Price,
			DeliveryDays: p.DeliveryDays,
		})
	}

	gig, err := h.gigs.CreateGig(c.Request.Context(), actor, service.CreateGigInput{
		Title:       req.Title,
		Description: req.Description,
		Currency:    req.Currency,
		Packages:    packages,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gig)
}

// GetGig обрабатывает GET /gigs/:id.
func (h *GigHandler) GetGig(c *gin.Context) {
	if _, ok := common.CurrentActor(c); !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	gig, err := h.gigs.GetGig(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gig)
}

// Purchase обрабатывает POST /gigs/:id/orders.
func (h *GigHandler) Purchase(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	gigID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.PurchaseGigRequest
	if !common.BindJSON(c, &req) {
		return
	}

	res, err := h.gigs.Purchase(c.Request.Context(), actor, gigID, req.PackageID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.PurchaseResponse{Order: res.Order, Payment: res.Payment})
}
