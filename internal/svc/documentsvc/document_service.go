// Package documentsvc accepts PDF uploads and feeds their text to a
// generative model chunk by chunk.
package documentsvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/repo/blob"
)

const (
	// DefaultChunkSize is the number of code points sent to the model per request.
	DefaultChunkSize = 30000

	// PromptPrefix precedes every chunk sent to the model.
	PromptPrefix = "Please process and understand the following content for training purposes:\n\n"

	// SuccessMessage is the summary message when every chunk was processed.
	SuccessMessage = "PDF content successfully processed by Gemini"
)

var (
	// ErrUnknownFailurePolicy is returned for a failure policy other than FailFast or Accumulate.
	ErrUnknownFailurePolicy = errors.New("unknown failure policy")

	// ErrNoUploadStore is returned by upload operations on a service built without blob storage.
	ErrNoUploadStore = errors.New("no upload store configured")
)

// PDFMagic is the signature every accepted upload starts with.
var PDFMagic = []byte("%PDF-")

// FailurePolicy decides what happens when the model fails on a chunk.
type FailurePolicy string

const (
	// FailFast aborts the run on the first failed chunk and discards earlier responses.
	FailFast FailurePolicy = "failfast"
	// Accumulate records failed chunks and carries on with the rest.
	Accumulate FailurePolicy = "accumulate"
)

// ParseFailurePolicy returns the policy named by value. An empty value selects FailFast.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch policy := FailurePolicy(strings.ToLower(strings.TrimSpace(value))); policy {
	case "":
		return FailFast, nil
	case FailFast, Accumulate:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, value)
	}
}

// DocumentConfig contains configuration parameters for the document service.
type DocumentConfig struct {
	// MaxUploadSize is the largest accepted upload in bytes
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" default:"52428800"` // 50MiB

	// ChunkSize is the number of code points per model request
	ChunkSize int `env:"CHUNK_SIZE" default:"30000"`

	// FailurePolicy is either "failfast" or "accumulate"
	FailurePolicy FailurePolicy `env:"FAILURE_POLICY" default:"failfast"`

	// ModelTimeout bounds a whole summarization run; zero disables it
	ModelTimeout time.Duration `env:"MODEL_TIMEOUT" default:"0s"`
}

// DocumentService implements upload intake, text extraction and summarization.
type DocumentService struct {
	blobs     blob.Repository
	extractor TextExtractor
	generator Generator
	cfg       DocumentConfig
	log       logging.Logger
	now       func() time.Time
}

// NewDocumentService creates a DocumentService. The generator may be nil when
// only uploads are served; summarizing then fails with ErrProcessingFailed.
// A nil blobFactory builds a service that only extracts and summarizes; its
// upload operations fail with ErrNoUploadStore.
func NewDocumentService(
	ctx context.Context,
	blobFactory blob.RepositoryFactory,
	extractor TextExtractor,
	generator Generator,
	cfg DocumentConfig,
) (*DocumentService, error) {
	policy, err := ParseFailurePolicy(string(cfg.FailurePolicy))
	if err != nil {
		return nil, err
	}

	cfg.FailurePolicy = policy

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	var blobs blob.Repository

	if blobFactory != nil {
		if blobs, err = blobFactory(ctx); err != nil {
			return nil, fmt.Errorf("new blob repo: %w", err)
		}
	}

	return &DocumentService{
		blobs:     blobs,
		extractor: extractor,
		generator: generator,
		cfg:       cfg,
		log:       logging.GetLogger("svc.documentsvc.document_service"),
		now:       time.Now,
	}, nil
}

// WithClock returns a copy of the service that reads the time from now.
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	clone := *s
	clone.now = now

	return &clone
}

// AcceptUpload stores an uploaded PDF as "<unix-millis>-<basename>" and returns
// the stored name. The declared media type is checked before anything is read
// or written.
func (s *DocumentService) AcceptUpload(
	ctx context.Context,
	body io.Reader,
	originalName string,
	mediaType string,
) (id domain.BlobID, err error) {
	log := s.log.With(logging.Group("upload", "name", originalName, "type", mediaType))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "upload rejected", "error", err)
		} else {
			log.InfoContext(ctx, "upload stored", "id", id)
		}
	}()

	if s.blobs == nil {
		return "", ErrNoUploadStore
	}

	if !IsPDFMediaType(mediaType) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedType, mediaType)
	}

	base, err := SanitizeFilename(originalName)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	} else if int64(len(data)) > s.cfg.MaxUploadSize {
		return "", fmt.Errorf("%w: more than %d bytes", domain.ErrUploadTooLarge, s.cfg.MaxUploadSize)
	}

	if !bytes.HasPrefix(data, PDFMagic) {
		return "", fmt.Errorf("%w: missing PDF signature", domain.ErrUnsupportedType)
	}

	millis := s.now().UnixMilli()

	for {
		upload := domain.NewBlob(domain.BlobID(fmt.Sprintf("%d-%s", millis, base)), data)

		err := s.blobs.Store(ctx, upload)
		if errors.Is(err, os.ErrExist) {
			millis++

			continue
		} else if err != nil {
			return "", fmt.Errorf("store upload: %w", err)
		}

		return upload.ID, nil
	}
}

// ExtractText returns the plain text of the PDF at filename.
func (s *DocumentService) ExtractText(ctx context.Context, filename string) (string, error) {
	text, err := s.extractor.Extract(ctx, filename)
	if err != nil {
		return "", errors.Join(domain.ErrExtractionFailed, err)
	}

	return text, nil
}

// Summarize sends text to the model in chunks, in order, one request at a time.
func (s *DocumentService) Summarize(ctx context.Context, text string) (summary domain.Summary, err error) {
	chunks := SplitChunks(text, s.cfg.ChunkSize)
	log := s.log.With(logging.Group("summary", "chunks", len(chunks), "policy", s.cfg.FailurePolicy))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "summarize failed", "error", err)
		} else {
			log.InfoContext(ctx, "summarize finished", "success", summary.Success, "failures", len(summary.Failures))
		}
	}()

	if s.generator == nil {
		return domain.Summary{}, fmt.Errorf("%w: no model configured", domain.ErrProcessingFailed)
	}

	if s.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.cfg.ModelTimeout)
		defer cancel()
	}

	summary = domain.Summary{Success: true, Message: SuccessMessage, Responses: make([]string, 0, len(chunks))}

	for idx, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return domain.Summary{}, errors.Join(domain.ErrProcessingFailed, err)
		}

		resp, err := s.generator.Generate(ctx, PromptPrefix+chunk)
		if err != nil {
			if s.cfg.FailurePolicy == FailFast {
				return domain.Summary{}, errors.Join(domain.ErrProcessingFailed, fmt.Errorf("chunk %d: %w", idx, err))
			}

			summary.Failures = append(summary.Failures, domain.ChunkFailure{Index: idx, Error: err.Error()})

			continue
		}

		summary.Responses = append(summary.Responses, resp)
	}

	if len(summary.Failures) > 0 {
		summary.Success = false
		summary.Message = fmt.Sprintf("PDF content partially processed: %d of %d chunks failed",
			len(summary.Failures), len(chunks))
	}

	return summary, nil
}

// Process extracts and summarizes a previously uploaded file.
func (s *DocumentService) Process(ctx context.Context, id domain.BlobID) (domain.Summary, error) {
	if s.blobs == nil {
		return domain.Summary{}, ErrNoUploadStore
	}

	filename, err := s.blobs.Path(id)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("resolve upload: %w", err)
	}

	if !s.blobs.Exists(ctx, id) {
		return domain.Summary{}, fmt.Errorf("resolve upload %q: %w", id, os.ErrNotExist)
	}

	text, err := s.ExtractText(ctx, filename)
	if err != nil {
		return domain.Summary{}, err
	}

	return s.Summarize(ctx, text)
}

// ListUploads returns the stored names of every upload.
func (s *DocumentService) ListUploads(ctx context.Context) ([]domain.BlobID, error) {
	if s.blobs == nil {
		return nil, ErrNoUploadStore
	}

	ids, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	return ids, nil
}

// FetchUpload returns the content of a stored upload.
func (s *DocumentService) FetchUpload(ctx context.Context, id domain.BlobID) (*domain.Blob, error) {
	if s.blobs == nil {
		return nil, ErrNoUploadStore
	}

	upload, err := s.blobs.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch upload: %w", err)
	}

	return upload, nil
}

// DeleteUpload removes a stored upload.
func (s *DocumentService) DeleteUpload(ctx context.Context, id domain.BlobID) error {
	if s.blobs == nil {
		return ErrNoUploadStore
	}

	if err := s.blobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}

	return nil
}

// IsPDFMediaType reports whether the declared media type is application/pdf,
// ignoring parameters and case.
func IsPDFMediaType(mediaType string) bool {
	parsed, _, err := mime.ParseMediaType(mediaType)

	return err == nil && parsed == domain.MIMETypePDF
}

// SanitizeFilename strips any directory components from a client-supplied
// filename, treating both slash styles as separators.
func SanitizeFilename(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSpace(base)

	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidFilename, name)
	}

	return base, nil
}
