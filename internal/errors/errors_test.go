package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorInterface(t *testing.T) {
	err := New(http.StatusNotFound, "NOT_FOUND", "Resource not found")

	assert.Equal(t, "Resource not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "NOT_FOUND", err.ErrorCode)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("price", "must be a number")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	details, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "price", details.Field)
	assert.Equal(t, "must be a number", details.Message)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("Dataset")
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "Dataset not found", err.Message)
}

func TestIngestError(t *testing.T) {
	err := IngestError(fmt.Errorf("no header row"))
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, "INGEST_FAILED", err.ErrorCode)
	assert.Equal(t, "no header row", err.Details)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrDatasetNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "DATASET_NOT_FOUND", resp.Error.ErrorCode)
}

func TestHandleErrorMapsAPIError(t *testing.T) {
	h := NewErrorHandler(slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/zzz", nil)

	h.HandleError(rec, req, ErrDatasetNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "DATASET_NOT_FOUND")
}

func TestHandleErrorMapsGenericError(t *testing.T) {
	h := NewErrorHandler(slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)

	h.HandleError(rec, req, fmt.Errorf("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestHandleErrorMapsContextErrors(t *testing.T) {
	h := NewErrorHandler(slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)

	h.HandleError(rec, req, fmt.Errorf("wrapped: %w", context.DeadlineExceeded))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHandleErrorNil(t *testing.T) {
	h := NewErrorHandler(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(rec, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
