package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"clubvault/internal/auth"
)

// Handlers - обработчики HTTP API хранилища
type Handlers struct {
	Quota  *StorageQuotaHandler
	Folder *FolderHandler
	File   *FileHandler
	Trash  *TrashHandler
	Export *ExportHandler
	Batch  *BatchHandler
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

// NewRouter собирает маршруты /v1; все маршруты требуют токен
func NewRouter(verifier *auth.Verifier, h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{"Content-Disposition", exportFailedHeader, exportSucceededHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Post("/sessions", h.Quota.StartSession)
		r.Delete("/sessions/{id}", h.Quota.EndSession)

		r.Route("/organizations/{orgID}", func(r chi.Router) {
			r.Get("/quota", h.Quota.GetQuotaInfo)

			r.Get("/folders", h.Folder.ListFolders)
			r.Post("/folders", h.Folder.CreateFolder)
			r.Get("/objects", h.Folder.ListObjects)
			r.Post("/objects", h.File.UploadObject)

			r.Get("/trash", h.Trash.GetTrashItems)
			r.Post("/trash/empty", h.Trash.EmptyTrash)

			r.Post("/export/discover", h.Export.Discover)
			r.Post("/export", h.Export.Export)
		})

		r.Route("/folders/{id}", func(r chi.Router) {
			r.Get("/path", h.Folder.GetPath)
			r.Put("/rename", h.Folder.RenameFolder)
			r.Put("/move", h.Folder.MoveFolder)
			r.Delete("/", h.Folder.DeleteFolder)
		})

		r.Route("/objects/{id}", func(r chi.Router) {
			r.Post("/trash", h.Trash.MoveToTrash)
			r.Post("/restore", h.Trash.RestoreItem)
			r.Delete("/", h.Trash.DeletePermanently)
		})

		r.Route("/batch", func(r chi.Router) {
			r.Post("/trash", h.Batch.BatchTrash)
			r.Post("/restore", h.Batch.BatchRestore)
			r.Post("/export", h.Batch.BatchExport)
		})
	})

	return r
}
