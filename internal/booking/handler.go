package booking

import (
	"context"
	"net/http"

	"gymdesk/internal/api"
	"gymdesk/internal/apperr"
	"gymdesk/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// BookSlot godoc
// @Summary      Book a class
// @Description  Books a seat on a schedule slot for one calendar date.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BookSlotRequest  true  "Booking"
// @Success      201      {object}  api.DataResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /api/bookings [post]
func (h *Handler) BookSlot(c *gin.Context) {
	var req BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "userId, scheduleSlotId and bookingDate are required", err)
		return
	}
	if !auth.SelfOrStaff(c, req.UserID) {
		api.Fail(c, apperr.Forbidden("you can only book for yourself"))
		return
	}

	date, err := api.ParseDate(req.BookingDate)
	if err != nil {
		api.BadRequest(c, "bookingDate must be YYYY-MM-DD", nil)
		return
	}

	booking, err := h.service.BookSlot(c.Request.Context(), req.UserID, req.ScheduleSlotID, date)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusCreated, "Booking confirmed", booking)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid booking id", nil)
		return
	}

	booking, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	if !auth.SelfOrStaff(c, booking.UserID) {
		api.Fail(c, apperr.Forbidden("not allowed to view this booking"))
		return
	}
	api.OK(c, http.StatusOK, booking)
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Cancels a confirmed booking. Members cancel their own bookings; admins cancel any.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                   true   "Booking ID"
// @Param        request  body      CancelBookingRequest  false  "Requester"
// @Success      200      {object}  api.DataResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /api/bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid booking id", nil)
		return
	}

	callerID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized", Message: "user not authenticated"})
		return
	}
	role, _ := auth.GetUserRole(c)
	isAdmin := role == auth.RoleAdmin

	var req CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, "invalid request body", err)
			return
		}
	}
	if req.UserID != nil && *req.UserID != callerID && !isAdmin {
		api.Fail(c, apperr.Forbidden("you can only cancel your own bookings"))
		return
	}

	booking, err := h.service.Cancel(c.Request.Context(), id, callerID, isAdmin)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Booking cancelled", booking)
}

func (h *Handler) MarkAttended(c *gin.Context) {
	h.mark(c, h.service.MarkAttended, "Booking marked as attended")
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	h.mark(c, h.service.MarkNoShow, "Booking marked as no-show")
}

func (h *Handler) mark(c *gin.Context, op func(ctx context.Context, id int) (*Booking, error), message string) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid booking id", nil)
		return
	}

	booking, err := op(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, message, booking)
}

func (h *Handler) ListForUser(c *gin.Context) {
	userID, ok := api.IDParam(c, "userId")
	if !ok {
		api.BadRequest(c, "invalid user id", nil)
		return
	}
	if !auth.SelfOrStaff(c, userID) {
		api.Fail(c, apperr.Forbidden("not allowed to view these bookings"))
		return
	}

	bookings, err := h.service.ListForUser(c.Request.Context(), userID, c.Query("status"), c.Query("upcoming") == "true")
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, bookings)
}

func (h *Handler) ListAll(c *gin.Context) {
	filter := Filter{Status: c.Query("status"), Upcoming: c.Query("upcoming") == "true"}

	var ok bool
	if filter.Date, ok = api.OptionalDateQuery(c, "date"); !ok {
		api.BadRequest(c, "date must be YYYY-MM-DD", nil)
		return
	}
	if filter.SlotID, ok = api.OptionalIntQuery(c, "slot_id"); !ok {
		api.BadRequest(c, "slot_id must be an integer", nil)
		return
	}

	bookings, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, bookings)
}

// Report godoc
// @Summary      Booking report by day and class
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        start  query  string  false  "first booking date (YYYY-MM-DD)"
// @Param        end    query  string  false  "last booking date (YYYY-MM-DD)"
// @Success      200  {object}  api.DataResponse
// @Failure      400  {object}  api.ErrorResponse
// @Router       /api/bookings/stats [get]
func (h *Handler) Report(c *gin.Context) {
	from, ok := api.OptionalDateQuery(c, "start")
	if !ok {
		api.BadRequest(c, "start must be YYYY-MM-DD", nil)
		return
	}
	to, ok := api.OptionalDateQuery(c, "end")
	if !ok {
		api.BadRequest(c, "end must be YYYY-MM-DD", nil)
		return
	}

	report, err := h.service.Report(c.Request.Context(), from, to)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, report)
}
