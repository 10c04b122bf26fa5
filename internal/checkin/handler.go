package checkin

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

// Mint godoc
// @Summary      Issue QR code
// @Description  Issues a short-lived QR token for the authenticated member.
// @Tags         check-ins
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  api.DataResponse
// @Failure      403  {object}  api.ErrorResponse
// @Router       /api/qr/mint [post]
func (h *Handler) Mint(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized", Message: "user not authenticated"})
		return
	}

	result, err := h.service.Mint(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, result)
}

// Verify godoc
// @Summary      Verify QR code
// @Description  Checks a scanned QR token and the member's visit entitlement.
// @Tags         check-ins
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyRequest  true  "Scanned token"
// @Success      200      {object}  api.DataResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      410      {object}  api.ErrorResponse
// @Router       /api/qr/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "token is required", err)
		return
	}

	result, err := h.service.Verify(c.Request.Context(), req.Token)
	if err != nil {
		if result != nil {
			api.FailWithData(c, err, result)
			return
		}
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, result.Message, result)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	result, err := h.service.CreateCheckIn(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusCreated, "Check-in recorded", result)
}

func (h *Handler) List(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	limit, ok := api.OptionalIntQuery(c, "limit")
	if !ok {
		api.BadRequest(c, "limit must be an integer", nil)
		return
	}
	if limit != nil {
		filter.Limit = *limit
	}

	checkIns, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, checkIns)
}

func (h *Handler) Stats(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), filter)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, stats)
}

func bindFilter(c *gin.Context) (Filter, bool) {
	var f Filter
	var ok bool
	if f.UserID, ok = api.OptionalIntQuery(c, "user_id"); !ok {
		api.BadRequest(c, "user_id must be an integer", nil)
		return f, false
	}
	if f.Start, ok = api.OptionalDateQuery(c, "start"); !ok {
		api.BadRequest(c, "start must be YYYY-MM-DD", nil)
		return f, false
	}
	if f.End, ok = api.OptionalDateQuery(c, "end"); !ok {
		api.BadRequest(c, "end must be YYYY-MM-DD", nil)
		return f, false
	}
	return f, true
}
