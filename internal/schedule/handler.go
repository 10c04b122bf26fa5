package schedule

import (
	"net/http"

	"gymdesk/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary      Create schedule slot
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSlotRequest  true  "Slot definition"
// @Success      201      {object}  api.DataResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /api/schedule [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	slot, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusCreated, "Schedule slot created", slot)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid slot id", nil)
		return
	}

	var req UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	slot, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Schedule slot updated", slot)
}

// Cancel godoc
// @Summary      Cancel schedule slot
// @Description  Cancels the slot and every confirmed booking on it
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Param        id       path      int                true   "Slot ID"
// @Param        request  body      CancelSlotRequest  false  "Reason"
// @Success      200      {object}  api.DataResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /api/schedule/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid slot id", nil)
		return
	}

	var req CancelSlotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, "invalid request body", err)
			return
		}
	}

	result, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Schedule slot cancelled", result)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid slot id", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Schedule slot deleted", nil)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid slot id", nil)
		return
	}

	slot, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, slot)
}

func (h *Handler) List(c *gin.Context) {
	var filter Filter
	var ok bool
	if filter.DayOfWeek, ok = api.OptionalIntQuery(c, "day_of_week"); !ok {
		api.BadRequest(c, "day_of_week must be an integer", nil)
		return
	}
	if filter.ClassID, ok = api.OptionalIntQuery(c, "class_id"); !ok {
		api.BadRequest(c, "class_id must be an integer", nil)
		return
	}
	if filter.InstructorID, ok = api.OptionalIntQuery(c, "instructor_id"); !ok {
		api.BadRequest(c, "instructor_id must be an integer", nil)
		return
	}
	filter.Status = c.Query("status")

	slots, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, slots)
}

// Weekly godoc
// @Summary      Weekly timetable
// @Description  Active recurring slots grouped by day of week (0 = Sunday)
// @Tags         schedule
// @Produce      json
// @Success      200  {object}  api.DataResponse
// @Router       /api/schedule/weekly [get]
func (h *Handler) Weekly(c *gin.Context) {
	week, err := h.service.ListWeekly(c.Request.Context())
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, week)
}

func (h *Handler) Availability(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid slot id", nil)
		return
	}

	date, ok := api.OptionalDateQuery(c, "date")
	if !ok || date == nil {
		api.BadRequest(c, "date query parameter must be YYYY-MM-DD", nil)
		return
	}

	availability, err := h.service.Availability(c.Request.Context(), id, *date)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, availability)
}
