package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vesaa/patchbay/internal/apperr"
)

// envelope is the body of every response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

// fail maps err onto a status code through the apperr taxonomy. Persistence
// failures keep their message; this is an internal admin tool.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, envelope{Message: err.Error()})
}

// badRequest reports a binding failure, naming the first offending field.
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		fail(c, apperr.Validationf("field %s failed %q validation", fe.Field(), fe.Tag()))
		return
	}
	fail(c, apperr.Validationf("invalid request: %v", err))
}
