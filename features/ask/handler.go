package ask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"voicerag/internal/middleware"
	"voicerag/internal/pipeline"
	"voicerag/internal/rag"
)

const defaultMaxUpload = 50 << 20

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Variant() string
}

// FailureRecorder stores fatal runs so they can be retried later.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, variant string, req pipeline.Request, cause error) error
}

type Handler struct {
	runner    Runner
	recorder  FailureRecorder
	uploadDir string
	maxUpload int64
}

type Option func(*Handler)

func WithFailureRecorder(r FailureRecorder) Option {
	return func(h *Handler) { h.recorder = r }
}

func WithUploads(dir string, maxBytes int64) Option {
	return func(h *Handler) {
		if dir != "" {
			h.uploadDir = dir
		}
		if maxBytes > 0 {
			h.maxUpload = maxBytes
		}
	}
}

func NewHandler(runner Runner, opts ...Option) *Handler {
	h := &Handler{runner: runner, uploadDir: "./uploads", maxUpload: defaultMaxUpload}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.WithVariant(r.Context(), h.runner.Variant())

	if r.Method != http.MethodPost {
		h.writeJSON(ctx, w, http.StatusMethodNotAllowed, rag.ErrorResponse{Error: "Method not allowed"})
		return
	}

	req, uploads, err := h.decode(w, r)
	if err != nil {
		slog.WarnContext(ctx, "invalid ask request", "error", err)
		h.writeJSON(ctx, w, http.StatusBadRequest, rag.ErrorResponse{Error: err.Error()})
		return
	}

	slog.InfoContext(ctx, "running pipeline", "input_mode", req.InputMode, "input_value", req.InputValue)

	res, err := h.runner.Run(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "pipeline failed", "error", err)
		h.recordFailure(ctx, req, err)
		h.writeJSON(ctx, w, http.StatusInternalServerError, rag.ErrorResponse{Error: err.Error()})
		return
	}
	removeAll(ctx, uploads)

	if res.EmptyTranscription {
		h.writeJSON(ctx, w, http.StatusOK, rag.ErrorResponse{Error: rag.EmptyTranscriptionMessage})
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, res.Response)
}

func (h *Handler) recordFailure(ctx context.Context, req pipeline.Request, cause error) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.RecordFailure(ctx, h.runner.Variant(), req, cause); err != nil {
		slog.ErrorContext(ctx, "failed to record failed run", "error", err)
	}
}

// decode accepts a JSON body or a multipart form with uploaded files. The
// returned paths are uploads to discard once the run succeeds.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (pipeline.Request, []string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req pipeline.Request
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			return req, nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		if req.AudioPath == "" {
			return req, nil, errors.New("audio_path is required")
		}
		return req, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return pipeline.Request{}, nil, errors.New("upload too large or malformed")
	}

	req := pipeline.Request{
		InputMode:  rag.InputMode(r.FormValue("input_mode")),
		InputValue: r.FormValue("input_value"),
		AudioPath:  r.FormValue("audio_path"),
	}

	var uploads []string
	if path, ok, err := h.saveUpload(r, "audio"); err != nil {
		return req, nil, err
	} else if ok {
		req.AudioPath = path
		uploads = append(uploads, path)
	}
	if path, ok, err := h.saveUpload(r, "pdf"); err != nil {
		removeAll(r.Context(), uploads)
		return req, nil, err
	} else if ok {
		uploads = append(uploads, path)
		if req.InputMode == rag.InputModePDF {
			req.InputValue = path
		}
	}

	if req.AudioPath == "" {
		return req, nil, errors.New("audio file is required")
	}
	return req, uploads, nil
}

func (h *Handler) saveUpload(r *http.Request, field string) (string, bool, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("unable to read %s upload: %w", field, err)
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", false, fmt.Errorf("create upload directory: %w", err)
	}
	return writeUpload(h.uploadDir, header, file)
}

func writeUpload(dir string, header *multipart.FileHeader, src io.Reader) (string, bool, error) {
	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(dir, filename))

	dst, err := os.Create(path) // #nosec G304 -- path is UUID-based, not user-controlled
	if err != nil {
		return "", false, fmt.Errorf("save upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", false, fmt.Errorf("write upload: %w", err)
	}
	return path, true, nil
}

func removeAll(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "failed to clean up upload", "path", p, "error", err)
		}
	}
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
