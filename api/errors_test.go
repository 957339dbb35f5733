package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.ErrorKind
		want int
	}{
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindForbidden, http.StatusForbidden},
		{domain.KindInvalidTransition, http.StatusConflict},
		{domain.KindDuplicatePayment, http.StatusConflict},
		{domain.KindAlreadySettled, http.StatusConflict},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindNotPayable, http.StatusUnprocessableEntity},
		{domain.KindInvalidAmount, http.StatusUnprocessableEntity},
		{domain.KindInvalidInput, http.StatusBadRequest},
		{domain.ErrorKind("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestWriteError_hidesInternalErrors(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", nil, nil)

	writeError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	require.Len(t, c.Errors, 1)
}

func TestWriteError_wrappedDomainError(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", nil, nil)

	writeError(c, errors.Join(errors.New("context"), domain.Errorf(domain.KindNotPayable, "booking 7 is pending and unpaid")))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "not_payable", response.Error)
	assert.Equal(t, "booking 7 is pending and unpaid", response.Message)
}
