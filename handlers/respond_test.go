package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/service"
	"github.com/stretchr/testify/assert"
)

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err     error
		want    int
		message string
	}{
		{fmt.Errorf("book x: %w", apperrors.ErrNotFound), http.StatusNotFound, "book x: resource not found"},
		{fmt.Errorf("bad: %w", apperrors.ErrInvalidArgument), http.StatusBadRequest, ""},
		{service.ErrInvalidTransition, http.StatusConflict, ""},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, ""},
		{apperrors.ErrForbidden, http.StatusForbidden, ""},
		{service.ErrStorageDisabled, http.StatusServiceUnavailable, ""},
		{errors.New("connection reset by peer"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		if tt.message != "" {
			assert.Equal(t, tt.message, decode[errorResponse](t, rec).Error)
		}
	}
}

func TestValidatorCategory(t *testing.T) {
	v := NewValidator()
	in := validInput()
	in.Category = "mystery"
	assert.NoError(t, v.Struct(in))
	in.Category = "Poetry"
	assert.Error(t, v.Struct(in))
}
