package ask_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"voicerag/features/ask"
	"voicerag/internal/pipeline"
	"voicerag/internal/rag"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *MockRunner) Variant() string { return "cloud" }

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordFailure(ctx context.Context, variant string, req pipeline.Request, cause error) error {
	args := m.Called(ctx, variant, req, cause)
	return args.Error(0)
}

func jsonRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ask/cloud", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	runner := new(MockRunner)
	h := ask.NewHandler(runner)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, "/ask/cloud", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, map[string]any{"error": "Method not allowed"}, decodeBody(t, w))
	}
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestHandler_Success(t *testing.T) {
	runner := new(MockRunner)
	want := pipeline.Request{InputMode: rag.InputModeURL, InputValue: "https://example.com", AudioPath: "input.mp3"}
	runner.On("Run", mock.Anything, want).Return(pipeline.Result{Response: &rag.FinalResponse{
		TranscribedText: "opening hours",
		FinalResponse:   "Nine to five.",
		Sources:         []string{"https://example.com/about", "https://example.com/about"},
		AudioReplyPath:  "assistant_reply.mp3",
	}}, nil)

	w := httptest.NewRecorder()
	ask.NewHandler(runner).ServeHTTP(w, jsonRequest(t, want))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decodeBody(t, w)
	assert.Equal(t, "opening hours", body["transcribed_text"])
	assert.Equal(t, "Nine to five.", body["final_response"])
	assert.Len(t, body["sources"], 2)
	assert.Equal(t, "assistant_reply.mp3", body["audio_reply_path"])
	runner.AssertExpectations(t)
}

func TestHandler_EmptyTranscription(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(pipeline.Result{EmptyTranscription: true}, nil)

	w := httptest.NewRecorder()
	ask.NewHandler(runner).ServeHTTP(w, jsonRequest(t, map[string]string{
		"input_mode": "pdf", "input_value": "manual.pdf", "audio_path": "silence.mp3",
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"error": "Empty transcription."}, decodeBody(t, w))
}

func TestHandler_PipelineFailure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		recordErr error
		wantMsg   string
	}{
		{
			name:    "invalid input kind",
			err:     rag.ErrInvalidInputKind,
			wantMsg: "invalid input type: use 'pdf' or 'url'",
		},
		{
			name:      "synthesis failure with recorder error",
			err:       fmt.Errorf("%w: quota exceeded", rag.ErrSynthesis),
			recordErr: errors.New("db down"),
			wantMsg:   "speech synthesis failed: quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			recorder := new(MockRecorder)
			req := pipeline.Request{InputMode: "pdf", InputValue: "a.pdf", AudioPath: "q.mp3"}

			runner.On("Run", mock.Anything, req).Return(pipeline.Result{}, tt.err)
			recorder.On("RecordFailure", mock.Anything, "cloud", req, tt.err).Return(tt.recordErr)

			w := httptest.NewRecorder()
			ask.NewHandler(runner, ask.WithFailureRecorder(recorder)).ServeHTTP(w, jsonRequest(t, req))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, map[string]any{"error": tt.wantMsg}, decodeBody(t, w))
			recorder.AssertExpectations(t)
		})
	}
}

func TestHandler_BadRequest(t *testing.T) {
	runner := new(MockRunner)
	h := ask.NewHandler(runner)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"input_mode":`},
		{name: "missing audio", body: `{"input_mode":"url","input_value":"https://example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ask/cloud", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ask/cloud", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_MultipartUploads(t *testing.T) {
	uploadDir := t.TempDir()
	runner := new(MockRunner)

	var got pipeline.Request
	runner.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(pipeline.Request)
		audio, err := os.ReadFile(got.AudioPath)
		require.NoError(t, err)
		assert.Equal(t, "content of question.mp3", string(audio))
	}).Return(pipeline.Result{Response: &rag.FinalResponse{Sources: []string{}}}, nil)

	req := multipartRequest(t,
		map[string]string{"input_mode": "pdf", "input_value": "ignored.pdf"},
		map[string]string{"audio": "question.mp3", "pdf": "manual.pdf"},
	)
	w := httptest.NewRecorder()
	ask.NewHandler(runner, ask.WithUploads(uploadDir, 1<<20)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rag.InputModePDF, got.InputMode)
	assert.Equal(t, uploadDir, filepath.Dir(got.AudioPath))
	assert.True(t, strings.HasSuffix(got.AudioPath, "_question.mp3"))
	assert.True(t, strings.HasSuffix(got.InputValue, "_manual.pdf"))

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "uploads are removed after a successful run")
}

func TestHandler_MultipartKeepsUploadsOnFailure(t *testing.T) {
	uploadDir := t.TempDir()
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(pipeline.Result{}, rag.ErrConversion)

	req := multipartRequest(t,
		map[string]string{"input_mode": "url", "input_value": "https://example.com"},
		map[string]string{"audio": "question.mp3"},
	)
	w := httptest.NewRecorder()
	ask.NewHandler(runner, ask.WithUploads(uploadDir, 0)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHandler_MultipartRequiresAudio(t *testing.T) {
	runner := new(MockRunner)
	req := multipartRequest(t, map[string]string{"input_mode": "url", "input_value": "https://example.com"}, nil)
	w := httptest.NewRecorder()
	ask.NewHandler(runner, ask.WithUploads(t.TempDir(), 0)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
