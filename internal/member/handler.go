package member

import (
	"net/http"

	"gymdesk/internal/api"
	"gymdesk/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Me godoc
// @Summary      Current member
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  api.DataResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /api/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized", Message: "user not authenticated"})
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	api.OK(c, http.StatusOK, m)
}
