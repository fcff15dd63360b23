package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
	"clubvault/internal/service"
)

type FolderHandler struct {
	folderService *service.FolderService
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type renameFolderRequest struct {
	Name string `json:"name"`
}

type moveFolderRequest struct {
	// nil - перенос в корень области
	ParentID *int64 `json:"parent_id"`
}

type deleteFolderResponse struct {
	Notice string `json:"notice"`
}

type objectsResponse struct {
	Photos []domain.StoredObject `json:"photos"`
	Files  []domain.StoredObject `json:"files"`
}

func NewFolderHandler(folderService *service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

// ListFolders возвращает подпапки ?parent= (без параметра - корень области)
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	scope, ok := orgScope(w, r)
	if !ok {
		return
	}
	parentID, err := optionalInt64(r.URL.Query().Get("parent"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid parent"})
		return
	}

	folders, err := h.folderService.ListChildren(r.Context(), caller, scope, parentID)
	if err != nil {
		writeError(w, r, err, "Failed to list folders")
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

// ListObjects возвращает фото и файлы папки ?folder=
func (h *FolderHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	scope, ok := orgScope(w, r)
	if !ok {
		return
	}
	folderID, err := optionalInt64(r.URL.Query().Get("folder"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid folder"})
		return
	}

	photos, files, err := h.folderService.ListObjects(r.Context(), caller, scope, folderID)
	if err != nil {
		writeError(w, r, err, "Failed to list objects")
		return
	}
	writeJSON(w, http.StatusOK, objectsResponse{Photos: photos, Files: files})
}

// GetPath возвращает цепочку папок от корня для хлебных крошек
func (h *FolderHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}

	path, err := h.folderService.ResolvePathFor(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err, "Failed to resolve folder path")
		return
	}
	writeJSON(w, http.StatusOK, path)
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	scope, ok := orgScope(w, r)
	if !ok {
		return
	}

	var req createFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), caller, scope, req.ParentID, req.Name)
	if err != nil {
		writeError(w, r, err, "Failed to create folder")
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}

	var req renameFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), caller, id, req.Name)
	if err != nil {
		writeError(w, r, err, "Failed to rename folder")
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}

	var req moveFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	folder, err := h.folderService.MoveFolder(r.Context(), caller, id, req.ParentID)
	if err != nil {
		writeError(w, r, err, "Failed to move folder")
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}

	notice, err := h.folderService.DeleteFolder(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err, "Failed to delete folder")
		return
	}

	log.Debug().Int64("folder_id", id).Msg("folder deleted")
	writeJSON(w, http.StatusOK, deleteFolderResponse{Notice: notice})
}
