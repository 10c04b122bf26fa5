package subscription

import (
	"context"
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

// ListPlans godoc
// @Summary      List plans
// @Tags         subscriptions
// @Produce      json
// @Success      200  {object}  api.DataResponse
// @Router       /api/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, plans)
}

func (h *Handler) ListForUser(c *gin.Context) {
	userID, ok := api.IDParam(c, "userId")
	if !ok {
		api.BadRequest(c, "invalid user id", nil)
		return
	}
	if !auth.SelfOrStaff(c, userID) {
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "forbidden", Message: "not allowed to view these subscriptions"})
		return
	}

	subs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, subs)
}

func (h *Handler) Renew(c *gin.Context) {
	h.mutate(c, h.service.Renew, "Subscription renewed")
}

func (h *Handler) Suspend(c *gin.Context) {
	h.mutate(c, h.service.Suspend, "Subscription suspended")
}

func (h *Handler) Cancel(c *gin.Context) {
	h.mutate(c, h.service.Cancel, "Subscription cancelled")
}

func (h *Handler) mutate(c *gin.Context, op func(ctx context.Context, id int) (*Subscription, error), message string) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid subscription id", nil)
		return
	}

	sub, err := op(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, message, sub)
}
