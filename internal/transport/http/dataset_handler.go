package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "soilhub/internal/errors"
	"soilhub/internal/middleware"
	api "soilhub/pkg/contracts/api/v1"
)

// multipartOverhead is allowed on top of the upload limit for form framing
const multipartOverhead = 1 << 20

// DatasetHandler handles dataset upload, listing and preview requests
type DatasetHandler struct {
	service      DatasetServiceInterface
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes. sub registers further routes on the
// per-dataset router, after the id has been validated.
func (h *DatasetHandler) Routes(sub ...func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(DatasetCtx(h.errorHandler))
		r.Use(middleware.TraceMiddleware("dataset.request"))
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/preview", h.Preview)

		for _, register := range sub {
			register(r)
		}
	})

	return r
}

// DatasetCtx rejects ids that cannot name a stored dataset
func DatasetCtx(errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !middleware.IsDatasetID(chi.URLParam(r, "id")) {
				errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Invalid dataset id"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets := h.service.List(r.Context())
	render.JSON(w, r, api.SuccessList(datasets, len(datasets)))
}

// Upload handles POST /api/datasets. The file is sent in the multipart field
// "file"; the optional field "name" overrides the client file name.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	limit := h.service.MaxUploadBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file is required"))
		return
	}
	defer file.Close()

	name := header.Filename
	if override := r.FormValue("name"); override != "" {
		name = override
	}

	h.logger.InfoContext(r.Context(), "uploading dataset",
		slog.String("request_id", reqID),
		slog.String("name", name),
		slog.Int64("size_bytes", header.Size),
	)

	ds, err := h.service.Upload(r.Context(), name, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.Success(ds))
}

// Get handles GET /api/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.Success(ds))
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "dataset deleted",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("dataset_id", id),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/datasets/{id}/preview?limit=
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 10000, 0)
	if !ok {
		return
	}

	preview, err := h.service.Preview(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.Success(preview))
}
