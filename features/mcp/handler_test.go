package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"voicerag/internal/pipeline"
	"voicerag/internal/rag"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *mockRunner) Stats() pipeline.Stats {
	return m.Called().Get(0).(pipeline.Stats)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordFailure(ctx context.Context, variant string, req pipeline.Request, cause error) error {
	return m.Called(ctx, variant, req, cause).Error(0)
}

var answered = pipeline.Result{Response: &rag.FinalResponse{
	TranscribedText: "when does it open",
	FinalResponse:   "At nine.",
	Sources:         []string{"doc.pdf#page=1"},
	AudioReplyPath:  "assistant_reply.mp3",
}}

func TestHandler_handleAsk(t *testing.T) {
	ctx := context.Background()
	pdfInput := AskInput{InputMode: "pdf", InputValue: "doc.pdf", AudioPath: "q.mp3"}
	pdfRequest := pipeline.Request{InputMode: rag.InputModePDF, InputValue: "doc.pdf", AudioPath: "q.mp3"}

	t.Run("single variant is implied", func(t *testing.T) {
		local := new(mockRunner)
		local.On("Run", mock.Anything, pdfRequest).Return(answered, nil)
		h := NewHandler(map[string]Runner{"local": local})

		_, out, err := h.handleAsk(ctx, nil, pdfInput)

		require.NoError(t, err)
		assert.Equal(t, "local", out.Variant)
		assert.Equal(t, "when does it open", out.TranscribedText)
		assert.Equal(t, "At nine.", out.FinalResponse)
		assert.Equal(t, []string{"doc.pdf#page=1"}, out.Sources)
		assert.Equal(t, "assistant_reply.mp3", out.AudioReplyPath)
		assert.Empty(t, out.Error)
	})

	t.Run("explicit variant", func(t *testing.T) {
		local, cloud := new(mockRunner), new(mockRunner)
		cloud.On("Run", mock.Anything, pdfRequest).Return(answered, nil)
		h := NewHandler(map[string]Runner{"local": local, "cloud": cloud})

		in := pdfInput
		in.Variant = "cloud"
		_, out, err := h.handleAsk(ctx, nil, in)

		require.NoError(t, err)
		assert.Equal(t, "cloud", out.Variant)
		local.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("empty transcription", func(t *testing.T) {
		local := new(mockRunner)
		local.On("Run", mock.Anything, pdfRequest).Return(pipeline.Result{EmptyTranscription: true}, nil)
		h := NewHandler(map[string]Runner{"local": local})

		_, out, err := h.handleAsk(ctx, nil, pdfInput)

		require.NoError(t, err)
		assert.Equal(t, rag.EmptyTranscriptionMessage, out.Error)
		assert.Empty(t, out.FinalResponse)
	})

	t.Run("variant errors", func(t *testing.T) {
		tests := []struct {
			name    string
			runners []string
			variant string
		}{
			{name: "ambiguous", runners: []string{"local", "cloud"}},
			{name: "unknown", runners: []string{"local"}, variant: "edge"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runners := make(map[string]Runner)
				for _, name := range tt.runners {
					runners[name] = new(mockRunner)
				}
				h := NewHandler(runners)

				in := pdfInput
				in.Variant = tt.variant
				_, _, err := h.handleAsk(ctx, nil, in)

				assert.ErrorIs(t, err, ErrUnknownVariant)
			})
		}
	})

	t.Run("run failure is recorded", func(t *testing.T) {
		local := new(mockRunner)
		local.On("Run", mock.Anything, pdfRequest).Return(pipeline.Result{}, rag.ErrSynthesis)
		recorder := new(mockRecorder)
		recorder.On("RecordFailure", mock.Anything, "local", pdfRequest, rag.ErrSynthesis).Return(nil)
		h := NewHandler(map[string]Runner{"local": local}, WithFailureRecorder(recorder))

		_, _, err := h.handleAsk(ctx, nil, pdfInput)

		assert.ErrorIs(t, err, rag.ErrSynthesis)
		recorder.AssertExpectations(t)
	})

	t.Run("recorder error does not mask run error", func(t *testing.T) {
		local := new(mockRunner)
		local.On("Run", mock.Anything, pdfRequest).Return(pipeline.Result{}, rag.ErrFallback)
		recorder := new(mockRecorder)
		recorder.On("RecordFailure", mock.Anything, "local", pdfRequest, rag.ErrFallback).Return(errors.New("db down"))
		h := NewHandler(map[string]Runner{"local": local}, WithFailureRecorder(recorder))

		_, _, err := h.handleAsk(ctx, nil, pdfInput)

		assert.ErrorIs(t, err, rag.ErrFallback)
	})
}

func TestHandler_handleStats(t *testing.T) {
	local := new(mockRunner)
	local.On("Stats").Return(pipeline.Stats{Runs: 4, Fallbacks: 2})
	h := NewHandler(map[string]Runner{"local": local})

	_, out, err := h.handleStats(context.Background(), nil, StatsInput{})

	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Variants["local"].Runs)
	assert.Equal(t, int64(2), out.Variants["local"].Fallbacks)
}
