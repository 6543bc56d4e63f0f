package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOfAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
	}{
		{"validation", Validationf("port %d out of range", 99), KindValidation, http.StatusBadRequest},
		{"not found", NotFoundf("switch", "switch %d not found", 4), KindNotFound, http.StatusNotFound},
		{"conflict", Conflictf("switch \"core-1\"", "slot taken"), KindConflict, http.StatusConflict},
		{"persistence", Persistence(errors.New("disk I/O error"), "saving port"), KindPersistence, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), KindPersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestPersistenceKeepsClassifiedErrors(t *testing.T) {
	orig := Validationf("bad side")
	wrapped := Persistence(errors.Wrap(orig, "in transaction"), "connect")
	assert.True(t, Is(wrapped, KindValidation))
	assert.Nil(t, Persistence(nil, "noop"))
}

func TestErrorMessage(t *testing.T) {
	err := Persistence(errors.New("locked"), "updating fiber port")
	assert.Equal(t, "updating fiber port: locked", err.Error())

	var ae *Error
	assert.True(t, errors.As(Conflictf("patch panel \"B\"", "occupied"), &ae))
	assert.Equal(t, "patch panel \"B\"", ae.Entity)
}
