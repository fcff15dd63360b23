package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clubvault/internal/domain"
	"clubvault/internal/service"
)

// SessionHeader передает идентификатор сессии предупреждений о квоте
const SessionHeader = "X-Vault-Session"

type StorageQuotaHandler struct {
	quotaService *service.StorageQuotaService
	perms        *service.PermissionService
	sessions     *service.SessionRegistry
}

func NewStorageQuotaHandler(
	quotaService *service.StorageQuotaService,
	perms *service.PermissionService,
	sessions *service.SessionRegistry,
) *StorageQuotaHandler {
	return &StorageQuotaHandler{
		quotaService: quotaService,
		perms:        perms,
		sessions:     sessions,
	}
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// StartSession открывает сессию предупреждений о квоте
func (h *StorageQuotaHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	session := h.sessions.Start(caller.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: session.ID})
}

func (h *StorageQuotaHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if !h.sessions.End(chi.URLParam(r, "id"), caller.ID) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetQuotaInfo возвращает потребление, лимит и предупреждение о пороге.
// Без заголовка сессии предупреждение не выставляется.
func (h *StorageQuotaHandler) GetQuotaInfo(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := parseUUIDParam(w, r, "orgID")
	if !ok {
		return
	}

	if err := h.perms.CheckScopeVisible(r.Context(), caller, domain.OrganizationScope(orgID)); err != nil {
		writeError(w, r, err, "Failed to get quota info")
		return
	}

	var session *service.QuotaSession
	if id := r.Header.Get(SessionHeader); id != "" {
		session, ok = h.sessions.Get(id, caller.ID)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found"})
			return
		}
	}

	info, err := h.quotaService.GetQuotaInfo(r.Context(), orgID, session)
	if err != nil {
		writeError(w, r, err, "Failed to get quota info")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
