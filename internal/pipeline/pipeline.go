// Package pipeline wires corpus acquisition, indexing, speech and answering
// into one voice question/answer run.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"voicerag/internal/assistant"
	"voicerag/internal/corpus"
	"voicerag/internal/index"
	"voicerag/internal/middleware"
	"voicerag/internal/rag"
	"voicerag/internal/retrieval"
)

type Acquirer interface {
	Acquire(ctx context.Context, mode rag.InputMode, value string) ([]rag.Document, error)
}

type Indexer interface {
	Build(ctx context.Context, docs []rag.Document) (*index.Index, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

type Answerer interface {
	Answer(ctx context.Context, query string, idx retrieval.Searcher) (rag.AnswerResult, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, question, answer string) assistant.Evaluation
}

type Refiner interface {
	Refine(ctx context.Context, transcript string) assistant.Refinement
}

type FallbackAnswerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Deps are the capabilities a pipeline variant is built from. Refiner is
// optional.
type Deps struct {
	Acquirer    Acquirer
	Indexer     Indexer
	Transcriber Transcriber
	Refiner     Refiner
	Answerer    Answerer
	Evaluator   Evaluator
	Fallback    FallbackAnswerer
	Synthesizer Synthesizer
}

type Request struct {
	InputMode  rag.InputMode `json:"input_mode"`
	InputValue string        `json:"input_value"`
	AudioPath  string        `json:"audio_path"`
}

// Result holds either a response or the empty transcription state.
type Result struct {
	Response           *rag.FinalResponse
	EmptyTranscription bool
}

// Stats counts run outcomes since process start.
type Stats struct {
	Runs                int64 `json:"runs"`
	Failures            int64 `json:"failures"`
	EmptyTranscriptions int64 `json:"empty_transcriptions"`
	Fallbacks           int64 `json:"fallbacks"`
	LastIndexedChunks   int64 `json:"last_indexed_chunks"`
}

type counters struct {
	runs, failures, empty, fallbacks, lastChunks atomic.Int64
}

type Pipeline struct {
	variant   string
	deps      Deps
	replyPath string
	lock      sync.Locker
	counters  counters
}

func New(variant string, deps Deps, replyPath string) *Pipeline {
	if replyPath == "" {
		replyPath = "assistant_reply.mp3"
	}
	return &Pipeline{variant: variant, deps: deps, replyPath: replyPath, lock: &sync.Mutex{}}
}

// WithLock makes runs share l with other pipelines writing the same index
// and reply locations.
func (p *Pipeline) WithLock(l sync.Locker) *Pipeline {
	p.lock = l
	return p
}

func (p *Pipeline) Variant() string {
	return p.variant
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Runs:                p.counters.runs.Load(),
		Failures:            p.counters.failures.Load(),
		EmptyTranscriptions: p.counters.empty.Load(),
		Fallbacks:           p.counters.fallbacks.Load(),
		LastIndexedChunks:   p.counters.lastChunks.Load(),
	}
}

// Run executes one question/answer cycle. Fatal failures are returned as
// errors and no partial response is produced.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	ctx = middleware.WithVariant(ctx, p.variant)

	p.lock.Lock()
	defer p.lock.Unlock()

	p.counters.runs.Add(1)
	res, err := p.run(ctx, req)
	switch {
	case err != nil:
		p.counters.failures.Add(1)
	case res.EmptyTranscription:
		p.counters.empty.Add(1)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if err := corpus.ValidateMode(req.InputMode); err != nil {
		return Result{}, err
	}

	docs, err := p.deps.Acquirer.Acquire(ctx, req.InputMode, req.InputValue)
	if err != nil {
		return Result{}, err
	}

	idx, err := p.deps.Indexer.Build(ctx, docs)
	if err != nil {
		return Result{}, err
	}
	p.counters.lastChunks.Store(int64(idx.Size()))

	transcript, err := p.deps.Transcriber.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return Result{}, err
	}
	if transcript == "" {
		slog.WarnContext(ctx, "empty transcription", "audio_path", req.AudioPath)
		return Result{EmptyTranscription: true}, nil
	}

	query := transcript
	if p.deps.Refiner != nil {
		query = p.deps.Refiner.Refine(ctx, transcript).Query
	}

	answer, err := p.deps.Answerer.Answer(ctx, query, idx)
	if err != nil {
		return Result{}, err
	}

	final := answer.Answer
	evaluation := p.deps.Evaluator.Evaluate(ctx, query, answer.Answer)
	if evaluation.Insufficient() {
		slog.InfoContext(ctx, "using fallback answer", "verdict", evaluation.Verdict.String())
		p.counters.fallbacks.Add(1)
		final, err = p.deps.Fallback.Answer(ctx, query)
		if err != nil {
			return Result{}, err
		}
	}

	if err := p.deps.Synthesizer.Synthesize(ctx, final, p.replyPath); err != nil {
		return Result{}, err
	}

	slog.InfoContext(ctx, "pipeline completed",
		"documents", len(docs),
		"chunks", idx.Size(),
		"sources", len(answer.Sources),
		"fallback", evaluation.Insufficient(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}

	// Sources stay those of the retrieval answer even when the fallback wins.
	return Result{Response: &rag.FinalResponse{
		TranscribedText: transcript,
		FinalResponse:   final,
		Sources:         sources,
		AudioReplyPath:  p.replyPath,
	}}, nil
}
