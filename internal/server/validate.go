package server

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/vesaa/patchbay/internal/alarms"
	"github.com/vesaa/patchbay/internal/models"
)

var registerOnce sync.Once

// registerValidators adds the domain tags to gin's shared validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("endpoint_kind", func(fl validator.FieldLevel) bool {
			return models.EndpointKind(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("ack_type", func(fl validator.FieldLevel) bool {
			return alarms.AckType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("alarm_type", func(fl validator.FieldLevel) bool {
			_, ok := alarms.SeverityFor(models.AlarmType(fl.Field().String()))
			return ok
		})
	})
}
