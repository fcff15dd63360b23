package handler

import (
	"net/http"

	"clubvault/internal/service"
)

type TrashHandler struct {
	trashService *service.TrashService
}

func NewTrashHandler(trashService *service.TrashService) *TrashHandler {
	return &TrashHandler{trashService: trashService}
}

type batchResponse struct {
	Summary string      `json:"summary"`
	Result  interface{} `json:"result"`
}

// GetTrashItems обрабатывает запрос на получение содержимого корзины клуба
func (h *TrashHandler) GetTrashItems(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := parseUUIDParam(w, r, "orgID")
	if !ok {
		return
	}

	items, err := h.trashService.TrashListing(r.Context(), caller, orgID)
	if err != nil {
		writeError(w, r, err, "Failed to get trash items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// EmptyTrash окончательно удаляет все объекты корзины клуба
func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := parseUUIDParam(w, r, "orgID")
	if !ok {
		return
	}

	result, err := h.trashService.EmptyTrash(r.Context(), caller, orgID)
	if err != nil {
		writeError(w, r, err, "Failed to empty trash")
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{
		Summary: result.Summary("deleted %d forever"),
		Result:  result,
	})
}

// MoveToTrash перемещает объект в корзину
func (h *TrashHandler) MoveToTrash(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.trashService.SoftDelete(r.Context(), caller, id); err != nil {
		writeError(w, r, err, "Failed to move to trash")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreItem восстанавливает объект из корзины
func (h *TrashHandler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	object, err := h.trashService.Restore(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err, "Failed to restore item")
		return
	}
	writeJSON(w, http.StatusOK, object)
}

// DeletePermanently удаляет объект из корзины навсегда.
// С ?hard=true привилегированный вызывающий удаляет объект минуя корзину.
func (h *TrashHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = h.trashService.HardDelete(r.Context(), caller, id)
	} else {
		err = h.trashService.PurgeForever(r.Context(), caller, id)
	}
	if err != nil {
		writeError(w, r, err, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
