package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
	"clubvault/internal/service"
)

const (
	exportFailedHeader    = "X-Export-Failed"
	exportSucceededHeader = "X-Export-Succeeded"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

type discoverRequest struct {
	FolderID *int64            `json:"folder_id,omitempty"`
	Mode     domain.ExportMode `json:"mode"`
}

type exportRequest struct {
	discoverRequest
	Excluded []string `json:"excluded"`
}

type nothingExportedResponse struct {
	Error  string              `json:"error"`
	Failed []domain.FailedItem `json:"failed"`
}

func (req *discoverRequest) mode() domain.ExportMode {
	if req.Mode == "" {
		return domain.ExportModeRecursive
	}
	return req.Mode
}

// Discover обходит поддерево и возвращает папки с количеством объектов
func (h *ExportHandler) Discover(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	scope, ok := orgScope(w, r)
	if !ok {
		return
	}

	var req discoverRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sel, err := h.exportService.Discover(r.Context(), caller, scope, req.FolderID, req.mode())
	if err != nil {
		writeError(w, r, err, "Failed to scan folders")
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// Export обходит поддерево, отбрасывает исключенные пути и отдает zip
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	scope, ok := orgScope(w, r)
	if !ok {
		return
	}

	var req exportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sel, err := h.exportService.Discover(r.Context(), caller, scope, req.FolderID, req.mode())
	if err != nil {
		writeError(w, r, err, "Failed to scan folders")
		return
	}

	result, err := h.exportService.BuildArchive(r.Context(), sel, req.Excluded, nil)
	writeArchive(w, r, service.ArchiveName(sel, time.Now()), result, err)
}

func writeArchive(w http.ResponseWriter, r *http.Request, name string, result *domain.ArchiveResult, err error) {
	if errors.Is(err, domain.ErrNothingExported) && result != nil {
		writeJSON(w, http.StatusUnprocessableEntity, nothingExportedResponse{
			Error:  domain.ErrNothingExported.Error(),
			Failed: result.Failed,
		})
		return
	}
	if err != nil {
		writeError(w, r, err, "Failed to export")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set(exportSucceededHeader, strconv.Itoa(result.Succeeded))
	w.Header().Set(exportFailedHeader, strconv.Itoa(len(result.Failed)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		log.Warn().Err(err).Str("archive", name).Msg("failed to send archive")
	}
}
