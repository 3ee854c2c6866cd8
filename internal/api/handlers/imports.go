package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dvloznov/spend-insight/internal/api/middleware"
	"github.com/dvloznov/spend-insight/internal/gcs"
	"github.com/dvloznov/spend-insight/internal/gcsuploader"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/jobs"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ImportsHandler enqueues asynchronous statement imports.
type ImportsHandler struct {
	publisher jobs.Publisher
	storage   gcs.StorageService // nil when no bucket is configured
	bucket    string
	validate  *validator.Validate
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(publisher jobs.Publisher, storage gcs.StorageService, bucket string, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		publisher: publisher,
		storage:   storage,
		bucket:    bucket,
		validate:  newValidator(),
		log:       log,
	}
}

type enqueueRequest struct {
	GCSURI string `json:"gcs_uri" validate:"required,startswith=gs://"`
	Format string `json:"format" validate:"omitempty,oneof=csv pdf"`
}

// EnqueueImport handles POST /api/imports
func (h *ImportsHandler) EnqueueImport(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if _, _, err := gcsuploader.ParseGCSURI(req.GCSURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.enqueue(w, r, req.GCSURI, req.Format)
}

// UploadAndImport handles POST /api/imports/upload with a multipart "file":
// the file is stored in the bucket and an import job is enqueued for it.
func (h *ImportsHandler) UploadAndImport(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil || h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Storage is not configured")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	source := ingest.DetectSource(header.Filename, header.Header.Get("Content-Type"))
	contentType := "text/csv"
	if source == ingest.SourcePDF {
		contentType = "application/pdf"
	}

	object := gcsuploader.ObjectName(header.Filename, time.Now().UTC())
	gcsURI, err := h.storage.Upload(r.Context(), h.bucket, object, file, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("object", object).Msg("Failed to upload statement")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to upload statement")
		return
	}

	h.enqueue(w, r, gcsURI, string(source))
}

func (h *ImportsHandler) enqueue(w http.ResponseWriter, r *http.Request, gcsURI, format string) {
	job := &jobs.ImportStatementJob{GCSURI: gcsURI, Format: format}
	if err := h.publisher.PublishImportStatement(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", gcsURI).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": gcsURI,
		"status":  string(job.Status),
	})
}
