package api

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

var (
	clockRe      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	registerOnce sync.Once
	registerErr  error
)

var customTags = map[string]validator.Func{
	"clock": func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	},
	"date": func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	},
}

// RegisterValidators adds the clock and date tags to gin's validator.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = registerTags(v, customTags)
	})
	return registerErr
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validator: %w", tag, err)
		}
	}
	return nil
}

func IsClock(s string) bool {
	return clockRe.MatchString(s)
}

// NormalizeClock turns HH:MM into HH:MM:SS, the form slot times are stored in.
func NormalizeClock(s string) string {
	if len(s) == 5 {
		return s + ":00"
	}
	return s
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// IDParam reads a positive integer path parameter.
func IDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// OptionalIntQuery reads an integer query parameter; ok is false when it is present but malformed.
func OptionalIntQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// OptionalDateQuery reads a YYYY-MM-DD query parameter.
func OptionalDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := ParseDate(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}
