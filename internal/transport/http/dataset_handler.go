package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/filipesmpacheco/projdataviz/internal/errors"
	"github.com/filipesmpacheco/projdataviz/internal/exporter"
	"github.com/filipesmpacheco/projdataviz/internal/services"
	"github.com/filipesmpacheco/projdataviz/internal/websocket"
)

const defaultRecordsPageSize = 100

// DatasetHandler handles dataset upload, dashboard and export requests.
type DatasetHandler struct {
	service      *services.DatasetService
	hub          *websocket.Hub
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler

	maxUploadBytes int64
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(service *services.DatasetService, hub *websocket.Hub, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		hub:            hub,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the dataset routes.
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.CreateDataset)
	r.Get("/", h.ListDatasets)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/records", h.GetRecords)
		r.Get("/export/csv", h.ExportCSV)
		r.Get("/export/xlsx", h.ExportXLSX)
		r.Delete("/", h.DeleteDataset)
	})

	return r
}

// DatasetCtx validates the dataset id parameter.
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Dataset id is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateDataset handles POST /api/datasets with a multipart file upload.
func (h *DatasetHandler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "Expected multipart form upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Missing file field in upload"))
		return
	}
	defer file.Close()

	format, err := formatFromFilename(header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedFormat)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	h.logger.InfoContext(r.Context(), "ingesting dataset",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.String("format", format),
		slog.Int64("size_bytes", header.Size),
	)

	dataset, err := h.service.Ingest(r.Context(), services.IngestOptions{
		Name:   name,
		Format: format,
	}, file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "ingest failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, apierrors.IngestError(err))
		return
	}

	if h.hub != nil {
		h.hub.BroadcastDatasetCreated(dataset.Meta)
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"dataset":   dataset.Meta,
		"stats":     dataset.Stats,
		"dashboard": dataset.Dashboard,
	})
}

// ListDatasets handles GET /api/datasets.
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	metas := h.service.List(r.Context())

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   metas,
		"count":  len(metas),
	})
}

// GetDashboard handles GET /api/datasets/{id}/dashboard.
func (h *DatasetHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dashboard, err := h.service.Dashboard(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   dashboard,
	})
}

// GetRecords handles GET /api/datasets/{id}/records with limit/offset paging.
func (h *DatasetHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, offset := services.PageFromQuery(
		r.URL.Query().Get("limit"),
		r.URL.Query().Get("offset"),
		defaultRecordsPageSize,
	)

	records, total, err := h.service.Records(r.Context(), id, limit, offset)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ExportCSV handles GET /api/datasets/{id}/export/csv.
func (h *DatasetHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dataset, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", exportDisposition(dataset.Meta.Name, "csv"))

	// UTF-8 BOM so Excel opens accented makes correctly.
	w.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := exporter.NewCSVWriter(h.logger)
	if err := writer.WriteRecordsTo(w, dataset.Records); err != nil {
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("error", err.Error()),
			slog.String("dataset_id", id),
		)
	}
}

// ExportXLSX handles GET /api/datasets/{id}/export/xlsx.
func (h *DatasetHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dataset, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", exportDisposition(dataset.Meta.Name, "xlsx"))

	writer := exporter.NewXLSXWriter(h.logger)
	if err := writer.WriteSummaryTo(w, dataset.Dashboard, dataset.Records); err != nil {
		h.logger.ErrorContext(r.Context(), "xlsx export failed",
			slog.String("error", err.Error()),
			slog.String("dataset_id", id),
		)
	}
}

// DeleteDataset handles DELETE /api/datasets/{id}.
func (h *DatasetHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastDatasetDeleted(id)
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"id":     id,
	})
}

// handleServiceError maps service errors to API errors.
func (h *DatasetHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrDatasetNotFound) {
		h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotFound)
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

// formatFromFilename maps an upload's extension to a parser format.
func formatFromFilename(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return "csv", nil
	case ".xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// exportDisposition builds a download filename from the dataset name.
func exportDisposition(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "dataset"
	}
	stamp := time.Now().UTC().Format("20060102")
	return fmt.Sprintf(`attachment; filename="%s_%s.%s"`, base, stamp, ext)
}
