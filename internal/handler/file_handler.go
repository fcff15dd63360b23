package handler

import (
	"io"
	"net/http"

	"clubvault/internal/domain"
	"clubvault/internal/service"
)

// maxUploadMemory - сколько multipart формы держится в памяти
const maxUploadMemory = 100 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadObject принимает multipart форму: file, kind (photo|file),
// необязательные team и folder_id
func (h *FileHandler) UploadObject(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := parseUUIDParam(w, r, "orgID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to parse form"})
		return
	}

	scope, err := scopeOf(orgID, r.FormValue("team"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid team"})
		return
	}
	folderID, err := optionalInt64(r.FormValue("folder_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid folder_id"})
		return
	}
	kind := domain.ObjectKind(r.FormValue("kind"))
	if kind == "" {
		kind = domain.ObjectKindFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read file"})
		return
	}

	object, err := h.fileService.Upload(r.Context(), caller, service.UploadRequest{
		Scope:    scope,
		FolderID: folderID,
		Kind:     kind,
		Name:     header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(w, r, err, "Failed to upload file")
		return
	}
	writeJSON(w, http.StatusCreated, object)
}
