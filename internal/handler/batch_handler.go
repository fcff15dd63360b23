package handler

import (
	"fmt"
	"net/http"
	"time"

	"clubvault/internal/service"
)

type BatchHandler struct {
	batch *service.BatchCoordinator
}

func NewBatchHandler(batch *service.BatchCoordinator) *BatchHandler {
	return &BatchHandler{batch: batch}
}

type selectionRequest struct {
	Items []service.SelectionRef `json:"items"`
}

// BatchExport собирает плоский архив из выбранных объектов
func (h *BatchHandler) BatchExport(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.batch.BatchExport(r.Context(), caller, service.SelectionOf(req.Items), nil)
	name := fmt.Sprintf("selection_%s.zip", time.Now().Format("20060102"))
	writeArchive(w, r, name, result, err)
}

// BatchTrash перемещает выбранные объекты в корзину
func (h *BatchHandler) BatchTrash(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.batch.BatchSoftDelete(r.Context(), caller, service.SelectionOf(req.Items))
	writeJSON(w, http.StatusOK, batchResponse{
		Summary: result.Summary("moved %d to trash"),
		Result:  result,
	})
}

// BatchRestore восстанавливает выбранные объекты из корзины
func (h *BatchHandler) BatchRestore(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.batch.BatchRestore(r.Context(), caller, service.SelectionOf(req.Items))
	writeJSON(w, http.StatusOK, batchResponse{
		Summary: result.Summary("restored %d"),
		Result:  result,
	})
}
