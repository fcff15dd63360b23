package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clubvault/internal/auth"
	"clubvault/internal/domain"
)

// StatusClientClosedRequest - отмена операции вызывающим
const StatusClientClosedRequest = 499

// statusFor сопоставляет ошибку домена HTTP статусу
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, domain.ErrNotTrashed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNothingExported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIntegrity):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError пишет короткое сообщение; внутренние ошибки не раскрываются
func writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := statusFor(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		event = log.Error()
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg(message)

	text := message
	switch {
	case errors.Is(err, domain.ErrIntegrity):
		text = domain.ErrIntegrity.Error()
	case status < http.StatusInternalServerError || status == http.StatusInsufficientStorage:
		text = message + ": " + err.Error()
	}
	writeJSON(w, status, errorResponse{Error: text})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to decode request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// callerFrom возвращает вызывающего, проверенного auth.Verifier.Middleware
func callerFrom(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Caller{}, false
	}
	return caller, true
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func parseInt64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

// optionalInt64 разбирает необязательный числовой параметр; пустое значение - nil
func optionalInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// scopeOf строит область из orgID и необязательного идентификатора команды
func scopeOf(orgID uuid.UUID, team string) (domain.Scope, error) {
	if team == "" {
		return domain.OrganizationScope(orgID), nil
	}
	teamID, err := uuid.Parse(team)
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.SubOrganizationScope(orgID, teamID), nil
}

// orgScope разбирает {orgID} и ?team= запроса
func orgScope(w http.ResponseWriter, r *http.Request) (domain.Scope, bool) {
	orgID, ok := parseUUIDParam(w, r, "orgID")
	if !ok {
		return domain.Scope{}, false
	}
	scope, err := scopeOf(orgID, r.URL.Query().Get("team"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid team"})
		return domain.Scope{}, false
	}
	return scope, true
}
