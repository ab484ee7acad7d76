package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	svcErr "harmony/internal/errors"
)

func TestMapClassifiesKnownErrors(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want svcErr.Kind
	}{
		{"record not found", gorm.ErrRecordNotFound, svcErr.KindNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, svcErr.KindConflict},
		{"deadline", context.DeadlineExceeded, svcErr.KindDependency},
		{"canceled", context.Canceled, svcErr.KindDependency},
		{"unknown", fmt.Errorf("boom"), svcErr.KindDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, svcErr.KindOf(svcErr.Map(tc.in)))
		})
	}
}

func TestMapPassesThroughClassified(t *testing.T) {
	err := svcErr.Validation("bad input")
	assert.Equal(t, err, svcErr.Map(err))
	assert.Nil(t, svcErr.Map(nil))

	// wrapped classified errors keep their kind
	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(svcErr.Map(wrapped)))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, svcErr.HTTPStatus(svcErr.Validation("x")))
	assert.Equal(t, http.StatusNotFound, svcErr.HTTPStatus(svcErr.NotFound("x")))
	assert.Equal(t, http.StatusForbidden, svcErr.HTTPStatus(svcErr.Forbidden("x")))
	assert.Equal(t, http.StatusConflict, svcErr.HTTPStatus(svcErr.Conflict("x")))
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.HTTPStatus(svcErr.Dependency(fmt.Errorf("x"))))
	assert.Equal(t, http.StatusInternalServerError, svcErr.HTTPStatus(fmt.Errorf("raw")))
}
