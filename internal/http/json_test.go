package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

func TestStatusForCode(t *testing.T) {
	cases := map[apperrors.ErrorCode]int{
		apperrors.ErrCodeValidation:   http.StatusBadRequest,
		apperrors.ErrCodeUnauthorized: http.StatusUnauthorized,
		apperrors.ErrCodeForbidden:    http.StatusForbidden,
		apperrors.ErrCodeNotFound:     http.StatusNotFound,
		apperrors.ErrCodeNetwork:      http.StatusBadGateway,
		apperrors.ErrCodeUpstream:     http.StatusBadGateway,
		apperrors.ErrCodeInternal:     http.StatusInternalServerError,
		"":                            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusForCode(code), code)
	}
}

func TestWriteAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, apperrors.ValidationField("username", "Username is required."))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation","message":"Username is required."}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteAppError(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal"`)
}
