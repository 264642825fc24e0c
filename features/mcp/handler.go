package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"voicerag/internal/pipeline"
	"voicerag/internal/rag"
)

const (
	Version = "1.0.0"

	ToolAsk   = "voicerag_ask"
	ToolStats = "voicerag_stats"
)

var ErrUnknownVariant = errors.New("unknown pipeline variant")

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Stats() pipeline.Stats
}

// FailureRecorder stores fatal runs so they can be retried later.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, variant string, req pipeline.Request, cause error) error
}

type Handler struct {
	runners  map[string]Runner
	recorder FailureRecorder
	server   *mcp.Server
}

type Option func(*Handler)

func WithFailureRecorder(r FailureRecorder) Option {
	return func(h *Handler) { h.recorder = r }
}

func NewHandler(runners map[string]Runner, opts ...Option) *Handler {
	h := &Handler{
		runners: runners,
		server:  mcp.NewServer(&mcp.Implementation{Name: "voicerag", Version: Version}, nil),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registerTools()
	return h
}

// Server exposes the MCP server, e.g. for in-process transports.
func (h *Handler) Server() *mcp.Server {
	return h.server
}

// HTTPHandler serves the streamable HTTP transport.
func (h *Handler) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return h.server
	}, nil)
}

type AskInput struct {
	Variant    string `json:"variant,omitempty" jsonschema:"pipeline variant to run, optional when only one is enabled"`
	InputMode  string `json:"input_mode" jsonschema:"corpus kind: pdf (input_value is a local file path) or url (input_value is the start URL)"`
	InputValue string `json:"input_value" jsonschema:"PDF path or start URL"`
	AudioPath  string `json:"audio_path" jsonschema:"local audio file holding the spoken question"`
}

type AskOutput struct {
	Variant         string   `json:"variant"`
	TranscribedText string   `json:"transcribed_text,omitempty"`
	FinalResponse   string   `json:"final_response,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	AudioReplyPath  string   `json:"audio_reply_path,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type StatsInput struct{}

type StatsOutput struct {
	Variants map[string]pipeline.Stats `json:"variants"`
}

func (h *Handler) registerTools() {
	mcp.AddTool(h.server, &mcp.Tool{
		Name: ToolAsk,
		Description: "Voice question answering. Builds an index from a PDF file or a same-host website crawl, " +
			"transcribes the spoken question in audio_path, answers it from the indexed content and writes a spoken reply.",
	}, h.handleAsk)

	mcp.AddTool(h.server, &mcp.Tool{
		Name:        ToolStats,
		Description: "Lists the enabled pipeline variants with their run counters.",
	}, h.handleStats)
}

func (h *Handler) variantNames() []string {
	names := make([]string, 0, len(h.runners))
	for name := range h.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) resolve(variant string) (string, Runner, error) {
	if variant == "" {
		if len(h.runners) != 1 {
			return "", nil, fmt.Errorf("%w: variant is required, one of %s", ErrUnknownVariant, strings.Join(h.variantNames(), ", "))
		}
		variant = h.variantNames()[0]
	}
	r, ok := h.runners[variant]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	return variant, r, nil
}

func (h *Handler) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	variant, runner, err := h.resolve(input.Variant)
	if err != nil {
		return nil, AskOutput{}, err
	}

	req := pipeline.Request{
		InputMode:  rag.InputMode(input.InputMode),
		InputValue: input.InputValue,
		AudioPath:  input.AudioPath,
	}
	res, err := runner.Run(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "ask tool failed", "variant", variant, "error", err)
		h.recordFailure(ctx, variant, req, err)
		return nil, AskOutput{}, err
	}

	out := AskOutput{Variant: variant}
	if res.EmptyTranscription {
		out.Error = rag.EmptyTranscriptionMessage
		return nil, out, nil
	}
	out.TranscribedText = res.Response.TranscribedText
	out.FinalResponse = res.Response.FinalResponse
	out.Sources = res.Response.Sources
	out.AudioReplyPath = res.Response.AudioReplyPath

	slog.InfoContext(ctx, "tool execution completed", "tool", ToolAsk, "variant", variant, "source_count", len(out.Sources))
	return nil, out, nil
}

func (h *Handler) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	out := StatsOutput{Variants: make(map[string]pipeline.Stats, len(h.runners))}
	for name, r := range h.runners {
		out.Variants[name] = r.Stats()
	}
	return nil, out, nil
}

func (h *Handler) recordFailure(ctx context.Context, variant string, req pipeline.Request, cause error) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.RecordFailure(ctx, variant, req, cause); err != nil {
		slog.ErrorContext(ctx, "failed to record failed run", "error", err)
	}
}
