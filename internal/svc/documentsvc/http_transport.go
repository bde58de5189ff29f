package documentsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	http_ "github.com/mkrupp/saba-backend/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the document endpoints.
type HTTPTransportConfig struct {
	// MultipartFileName is the form field carrying the upload
	MultipartFileName string `env:"MULTIPART_FILE_NAME" default:"pdf"`

	// RequireAdmin guards processing and upload management with the admin check
	RequireAdmin bool `env:"REQUIRE_ADMIN" default:"true"`
}

// UploadsResponse lists stored uploads.
type UploadsResponse struct {
	Uploads []domain.BlobID `json:"uploads"`
}

// HTTPTransport handles HTTP requests for the document service.
// It provides endpoints for uploading and processing PDFs.
type HTTPTransport struct {
	documentSvc *DocumentService
	authorizer  http_.Authorizer
	log         logging.Logger
	cfg         HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance.
func NewHTTPTransport(
	documentSvc *DocumentService,
	authorizer http_.Authorizer,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	return &HTTPTransport{
		documentSvc: documentSvc,
		authorizer:  authorizer,
		log:         logging.GetLogger("svc.documentsvc.http_transport"),
		cfg:         cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the document endpoints:
// - GET /api/pdf-training: Liveness message
// - POST /api/pdf-training/upload: Upload a PDF as multipart form data
// - GET /api/pdf-training/uploads: List stored uploads
// - GET /api/pdf-training/{filename}: Download an upload
// - POST /api/pdf-training/{filename}/process: Extract and summarize an upload
// - DELETE /api/pdf-training/{filename}: Remove an upload.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	guard := func(handler http.HandlerFunc) http.Handler {
		return http_.Guard(handler, ht.cfg.RequireAdmin, ht.authorizer, ht.log)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pdf-training", ht.HandleStatus)
	mux.HandleFunc("POST /api/pdf-training/upload", ht.HandleUpload)
	mux.Handle("GET /api/pdf-training/uploads", guard(ht.HandleList))
	mux.Handle("GET /api/pdf-training/{filename}", guard(ht.HandleDownload))
	mux.Handle("POST /api/pdf-training/{filename}/process", guard(ht.HandleProcess))
	mux.Handle("DELETE /api/pdf-training/{filename}", guard(ht.HandleDelete))
	mux.ServeHTTP(w, r)
}

// HandleStatus reports that the endpoints are up.
func (ht *HTTPTransport) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	_ = http_.WriteJSON(w, http.StatusOK, http_.MessageResponse{Message: "PDF Training API is working"})
}

// HandleUpload stores the PDF sent in the configured multipart field.
// The body is streamed part by part, so a rejected file is never buffered to disk.
func (ht *HTTPTransport) HandleUpload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpload(w, r)
}

func (ht *HTTPTransport) handleUpload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "upload failed", "error", err)
		} else {
			log.DebugContext(ctx, "upload succeeded")
		}
	}(r.Context())

	reader, err := r.MultipartReader()
	if err != nil {
		http_.WriteError(w, http.StatusBadRequest, "No PDF file uploaded")

		return errors.Join(domain.ErrNoUpload, err)
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			http_.WriteError(w, http.StatusBadRequest, "No PDF file uploaded")

			return domain.ErrNoUpload
		} else if err != nil {
			http_.WriteError(w, http.StatusBadRequest, "Malformed multipart body")

			return fmt.Errorf("next part: %w", err)
		}

		if part.FormName() != ht.cfg.MultipartFileName || part.FileName() == "" {
			_ = part.Close()

			continue
		}

		id, err := ht.documentSvc.AcceptUpload(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
		_ = part.Close()

		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUnsupportedType):
				http_.WriteError(w, http.StatusUnsupportedMediaType, "Only PDF files are allowed")
			case errors.Is(err, domain.ErrUploadTooLarge):
				http_.WriteError(w, http.StatusRequestEntityTooLarge, "PDF file too large")
			case errors.Is(err, domain.ErrInvalidFilename):
				http_.WriteError(w, http.StatusBadRequest, "Invalid filename")
			default:
				http_.WriteError(w, http.StatusInternalServerError, "Failed to store PDF")
			}

			return fmt.Errorf("accept upload: %w", err)
		}

		return http_.WriteJSON(w, http.StatusOK, domain.UploadResponse{
			Message:  "PDF uploaded successfully",
			Filename: id.String(),
		})
	}
}

// HandleList returns the stored uploads.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	ids, err := ht.documentSvc.ListUploads(r.Context())
	if err != nil {
		ht.log.ErrorContext(r.Context(), "list uploads failed", "error", err)
		http_.WriteError(w, http.StatusInternalServerError, "Failed to list uploads")

		return
	}

	_ = http_.WriteJSON(w, http.StatusOK, UploadsResponse{Uploads: ids})
}

// HandleDownload returns the stored PDF named in the path.
func (ht *HTTPTransport) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := domain.BlobID(r.PathValue("filename"))

	upload, err := ht.documentSvc.FetchUpload(r.Context(), id)
	if err != nil {
		ht.log.ErrorContext(r.Context(), "download upload failed", "error", err, logging.Group("upload", "id", id))
		ht.writeFileError(w, err)

		return
	}

	w.Header().Set("Content-Type", domain.MIMETypePDF)
	w.Header().Set("Content-Length", strconv.FormatInt(upload.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := upload.WriteTo(w); err != nil {
		ht.log.WarnContext(r.Context(), "write download failed", "error", err, logging.Group("upload", "id", id))
	}
}

// HandleProcess extracts and summarizes the upload named in the path.
func (ht *HTTPTransport) HandleProcess(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleProcess(w, r)
}

func (ht *HTTPTransport) handleProcess(w http.ResponseWriter, r *http.Request) (err error) {
	id := domain.BlobID(r.PathValue("filename"))
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("upload", "id", id),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "process failed", "error", err)
		} else {
			log.DebugContext(ctx, "processed")
		}
	}(r.Context())

	summary, err := ht.documentSvc.Process(r.Context(), id)
	if err != nil {
		ht.writeFileError(w, err)

		return fmt.Errorf("process: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, summary)
}

// HandleDelete removes the upload named in the path.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := domain.BlobID(r.PathValue("filename"))

	if err := ht.documentSvc.DeleteUpload(r.Context(), id); err != nil {
		ht.log.ErrorContext(r.Context(), "delete upload failed", "error", err, logging.Group("upload", "id", id))
		ht.writeFileError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ht *HTTPTransport) writeFileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFilename):
		http_.WriteError(w, http.StatusBadRequest, "Invalid filename")
	case errors.Is(err, os.ErrNotExist):
		http_.WriteError(w, http.StatusNotFound, "PDF file not found")
	case errors.Is(err, domain.ErrExtractionFailed):
		http_.WriteError(w, http.StatusUnprocessableEntity, domain.ErrExtractionFailed.Error())
	case errors.Is(err, domain.ErrProcessingFailed):
		http_.WriteError(w, http.StatusBadGateway, "Failed to process PDF content with Gemini")
	default:
		http_.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
