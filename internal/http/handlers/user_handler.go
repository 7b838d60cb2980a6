package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskfi-backend/internal/http/handlers/common"
)

// UserHandler обслуживает /users/me.
type UserHandler struct {
	users UserAPI
}

func NewUserHandler(users UserAPI) *UserHandler {
	return &UserHandler{users: users}
}

// GetMe обрабатывает GET /users/me.
func (h *UserHandler) GetMe(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	user, err := h.users.GetMe(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Deactivate обрабатывает DELETE /users/me: мягкое отключение аккаунта.
func (h *UserHandler) Deactivate(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	if err := h.users.Deactivate(c.Request.Context(), actor.ID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
