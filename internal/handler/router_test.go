package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubvault/internal/auth"
	"clubvault/internal/domain"
	"clubvault/internal/service"
)

const testSecret = "handler-secret"

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	verifier := auth.NewVerifier(testSecret)
	token, err := verifier.Sign(domain.Caller{ID: "coach"}, time.Hour)
	require.NoError(t, err)

	router := NewRouter(verifier, Handlers{
		Quota:  NewStorageQuotaHandler(nil, nil, service.NewSessionRegistry(time.Hour)),
		Folder: NewFolderHandler(nil),
		File:   NewFileHandler(nil),
		Trash:  NewTrashHandler(nil),
		Export: NewExportHandler(nil),
		Batch:  NewBatchHandler(nil),
	})
	return router, token
}

func do(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/sessions", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	router, token := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/sessions", token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotEmpty(t, body.SessionID)

	other, err := auth.NewVerifier(testSecret).Sign(domain.Caller{ID: "parent"}, time.Hour)
	require.NoError(t, err)
	rec = do(t, router, http.MethodDelete, "/v1/sessions/"+body.SessionID, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/v1/sessions/"+body.SessionID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, "/v1/sessions/"+body.SessionID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterRejectsMalformedParams(t *testing.T) {
	router, token := newTestRouter(t)
	org := uuid.New().String()

	cases := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/v1/organizations/not-a-uuid/folders"},
		{http.MethodGet, "/v1/organizations/" + org + "/folders?team=bad"},
		{http.MethodGet, "/v1/organizations/" + org + "/folders?parent=x"},
		{http.MethodGet, "/v1/organizations/not-a-uuid/quota"},
		{http.MethodGet, "/v1/folders/abc/path"},
		{http.MethodPost, "/v1/objects/abc/trash"},
		{http.MethodPost, "/v1/objects/abc/restore"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.target, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidArgument: http.StatusBadRequest,
		domain.ErrAccessDenied:    http.StatusForbidden,
		domain.ErrQuotaExceeded:   http.StatusInsufficientStorage,
		domain.ErrNotTrashed:      http.StatusConflict,
		domain.ErrNothingExported: http.StatusUnprocessableEntity,
		domain.ErrCancelled:       StatusClientClosedRequest,
		domain.ErrTransferFailed:  http.StatusBadGateway,
		domain.ErrNotFound:        http.StatusNotFound,
		domain.ErrIntegrity:       http.StatusInternalServerError,
		errors.New("boom"):        http.StatusInternalServerError,
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("context: %w", err)
		assert.Equal(t, want, statusFor(wrapped), err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/folders/1/path", nil)

	rec := httptest.NewRecorder()
	writeError(rec, req, fmt.Errorf("folder 1 parent loop: %w", domain.ErrIntegrity), "Failed to resolve path")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "parent loop")

	rec = httptest.NewRecorder()
	writeError(rec, req, errors.New("pq: connection refused"), "Failed to resolve path")
	assert.NotContains(t, rec.Body.String(), "pq:")

	rec = httptest.NewRecorder()
	writeError(rec, req, fmt.Errorf("upload of 10 bytes: %w", domain.ErrQuotaExceeded), "Failed to upload")
	assert.Equal(t, http.StatusInsufficientStorage, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload of 10 bytes")
}

func TestWriteArchive(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/batch/export", nil)

	rec := httptest.NewRecorder()
	writeArchive(rec, req, "Kit_20260307.zip", &domain.ArchiveResult{
		Data:      []byte("PK"),
		Succeeded: 2,
		Failed:    []domain.FailedItem{{Name: "x.jpg", Reason: "timeout"}},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Kit_20260307.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rec.Header().Get(exportSucceededHeader))
	assert.Equal(t, "1", rec.Header().Get(exportFailedHeader))
	assert.Equal(t, "PK", rec.Body.String())

	rec = httptest.NewRecorder()
	writeArchive(rec, req, "Kit_20260307.zip", &domain.ArchiveResult{
		Failed: []domain.FailedItem{{Name: "x.jpg", Reason: "timeout"}},
	}, fmt.Errorf("export: %w", domain.ErrNothingExported))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body nothingExportedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Failed, 1)
	assert.Equal(t, "x.jpg", body.Failed[0].Name)

	rec = httptest.NewRecorder()
	writeArchive(rec, req, "Kit_20260307.zip", nil, fmt.Errorf("export %w: %w", domain.ErrCancelled, errors.New("context canceled")))
	assert.Equal(t, StatusClientClosedRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `{"error":"Failed to export`))
}
