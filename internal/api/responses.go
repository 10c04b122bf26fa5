package api

import (
	"errors"
	"net/http"

	"gymdesk/internal/apperr"
	"gymdesk/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type DataResponse struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty" example:"Booking confirmed"`
}

type ErrorResponse struct {
	Success bool               `json:"success" example:"false"`
	Error   string             `json:"error" example:"not_found"`
	Message string             `json:"message" example:"something went wrong"`
	Details []ValidationDetail `json:"details,omitempty"`
	Data    interface{}        `json:"data,omitempty"`
}

type ValidationDetail struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, DataResponse{Success: true, Data: data})
}

func OKMessage(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, DataResponse{Success: true, Data: data, Message: message})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden, apperr.KindLimitReached:
		return http.StatusForbidden
	case apperr.KindInvalid, apperr.KindConflict, apperr.KindScheduleConflict, apperr.KindCapacityExceeded:
		return http.StatusBadRequest
	case apperr.KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Fail renders err. Store errors are logged and reported without detail.
func Fail(c *gin.Context, err error) {
	FailWithData(c, err, nil)
}

// FailWithData renders err together with data the caller can still display.
func FailWithData(c *gin.Context, err error, data interface{}) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindStore {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(StatusFor(kind), ErrorResponse{
		Error:   string(kind),
		Message: apperr.Message(err),
		Data:    data,
	})
}

// BadRequest renders a binding or parameter error, listing field violations when present.
func BadRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: string(apperr.KindInvalid), Message: message}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Message = "validation failed"
		for _, fe := range verrs {
			resp.Details = append(resp.Details, ValidationDetail{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
	}

	c.JSON(http.StatusBadRequest, resp)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "lte":
		return fe.Field() + " must be less than or equal to " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "clock":
		return fe.Field() + " must be a time in HH:MM format"
	case "date":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	default:
		return fe.Field() + " is invalid"
	}
}
