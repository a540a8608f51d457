package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "soilhub/internal/errors"
	"soilhub/internal/middleware"
	"soilhub/internal/services"
	api "soilhub/pkg/contracts/api/v1"
)

// AnalysisHandler handles exceedance analysis, export and diagnostics requests
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validate     *validator.Validate
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validate:     middleware.NewValidator(),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// DatasetRoutes registers the analysis routes below /api/datasets/{id}
func (h *AnalysisHandler) DatasetRoutes(r chi.Router) {
	r.Post("/analysis", h.Analyze)
	r.Get("/analysis/export", h.Export)
	r.Get("/diagnostics", h.Diagnostics)
}

// Items handles GET /api/items
func (h *AnalysisHandler) Items(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Items(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.Success(catalog))
}

// Analyze handles POST /api/datasets/{id}/analysis. An empty body runs the
// analysis with the server defaults.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req api.AnalysisRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := middleware.ValidateStruct(h.validate, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	h.logger.InfoContext(r.Context(), "running analysis",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("dataset_id", id),
		slog.Int("items", len(req.Items)),
		slog.Any("levels", req.Levels),
	)

	report, err := h.service.Analyze(r.Context(), id, toParams(req))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.Success(report))
}

// Export handles GET /api/datasets/{id}/analysis/export. Each items
// parameter names one item.
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := api.ExportRequest{
		AnalysisRequest: api.AnalysisRequest{
			Items:     queryItems(r.URL.Query()),
			Levels:    h.query.ValidateList(r, "levels"),
			CountMode: r.URL.Query().Get("count_mode"),
		},
		Format: r.URL.Query().Get("format"),
	}
	if err := middleware.ValidateStruct(h.validate, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), toParams(req.AnalysisRequest), req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// Diagnostics handles GET /api/datasets/{id}/diagnostics
func (h *AnalysisHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Diagnostics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.Success(report))
}

func toParams(req api.AnalysisRequest) services.AnalysisParams {
	return services.AnalysisParams{
		Items:     req.Items,
		Levels:    req.Levels,
		CountMode: strings.ToLower(req.CountMode),
	}
}

// queryItems takes one item per items parameter and never splits a value,
// since names such as "1,2DCA (1,2-디클로로에탄)" contain commas.
func queryItems(q url.Values) []string {
	var items []string
	for _, v := range q["items"] {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return items
}

// contentDisposition names the download, with an RFC 5987 form for
// non-ASCII file names
func contentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(filename))
}
