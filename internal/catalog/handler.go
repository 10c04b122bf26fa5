package catalog

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

// CreateClass godoc
// @Summary      Create class
// @Tags         classes
// @Accept       json
// @Produce      json
// @Param        request  body      CreateClassRequest  true  "Class definition"
// @Success      201      {object}  api.DataResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /api/classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusCreated, "Class created", class)
}

func (h *Handler) GetClass(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid class id", nil)
		return
	}

	class, err := h.service.GetClass(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, class)
}

func (h *Handler) ListClasses(c *gin.Context) {
	filter := ClassFilter{
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
	}

	classes, err := h.service.ListClasses(c.Request.Context(), filter)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, classes)
}

func (h *Handler) UpdateClass(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid class id", nil)
		return
	}

	var req UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	class, err := h.service.UpdateClass(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Class updated", class)
}

func (h *Handler) DeleteClass(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid class id", nil)
		return
	}

	if err := h.service.DeleteClass(c.Request.Context(), id); err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Class deleted", nil)
}

func (h *Handler) CreateInstructor(c *gin.Context) {
	var req CreateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	instructor, err := h.service.CreateInstructor(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusCreated, "Instructor created", instructor)
}

func (h *Handler) GetInstructor(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid instructor id", nil)
		return
	}

	instructor, err := h.service.GetInstructor(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, instructor)
}

func (h *Handler) ListInstructors(c *gin.Context) {
	instructors, err := h.service.ListInstructors(c.Request.Context(), c.Query("status"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, instructors)
}

func (h *Handler) UpdateInstructor(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid instructor id", nil)
		return
	}

	var req UpdateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid request body", err)
		return
	}

	instructor, err := h.service.UpdateInstructor(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Instructor updated", instructor)
}

func (h *Handler) DeleteInstructor(c *gin.Context) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		api.BadRequest(c, "invalid instructor id", nil)
		return
	}

	if err := h.service.DeleteInstructor(c.Request.Context(), id); err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Instructor deleted", nil)
}

func (h *Handler) AssignInstructor(c *gin.Context) {
	classID, ok1 := api.IDParam(c, "id")
	instructorID, ok2 := api.IDParam(c, "instructorId")
	if !ok1 || !ok2 {
		api.BadRequest(c, "invalid class or instructor id", nil)
		return
	}

	if err := h.service.AssignInstructor(c.Request.Context(), classID, instructorID); err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Instructor assigned", nil)
}

func (h *Handler) UnassignInstructor(c *gin.Context) {
	classID, ok1 := api.IDParam(c, "id")
	instructorID, ok2 := api.IDParam(c, "instructorId")
	if !ok1 || !ok2 {
		api.BadRequest(c, "invalid class or instructor id", nil)
		return
	}

	if err := h.service.UnassignInstructor(c.Request.Context(), classID, instructorID); err != nil {
		api.Fail(c, err)
		return
	}
	api.OKMessage(c, http.StatusOK, "Instructor unassigned", nil)
}
