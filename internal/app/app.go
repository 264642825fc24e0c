package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"voicerag/features/ask"
	"voicerag/features/job"
	"voicerag/features/mcp"
	"voicerag/features/stats"
	"voicerag/internal/adapter/ffmpeg"
	"voicerag/internal/adapter/gcloud"
	"voicerag/internal/adapter/gemini"
	"voicerag/internal/adapter/gtts"
	"voicerag/internal/adapter/reranker"
	"voicerag/internal/adapter/whisper"
	"voicerag/internal/assistant"
	"voicerag/internal/command"
	"voicerag/internal/config"
	"voicerag/internal/corpus"
	"voicerag/internal/index"
	"voicerag/internal/middleware"
	"voicerag/internal/pipeline"
	"voicerag/internal/retrieval"
	"voicerag/internal/text"
)

type App struct {
	Handler   http.Handler
	Pipelines map[string]*pipeline.Pipeline

	port        int
	queryLogger *retrieval.QueryLogger
}

type Option func(*options)

type options struct {
	runner command.Runner
}

// WithCommandRunner replaces the os/exec runner used for external tools.
func WithCommandRunner(r command.Runner) Option {
	return func(o *options) { o.runner = r }
}

func New(cfg *config.Config, deps *Dependencies, opts ...Option) (*App, error) {
	o := options{runner: command.ExecRunner{}}
	for _, opt := range opts {
		opt(&o)
	}

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	pipelines, err := buildPipelines(cfg, deps, o.runner, queryLogger)
	if err != nil {
		queryLogger.Close()
		return nil, err
	}

	// Middleware: CORS
	enableCORS := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()

	var recorder ask.FailureRecorder
	var jobCounter stats.JobCounter
	if deps.DB != nil {
		runners := make(map[string]job.Runner, len(pipelines))
		for name, p := range pipelines {
			runners[name] = p
		}
		jobService := job.NewService(job.NewPostgresRepo(deps.DB), runners)
		jobHandler := job.NewHandler(jobService)
		recorder = jobService
		jobCounter = jobService

		mux.Handle("GET /jobs/failed", middleware.CorrelationID(enableCORS(http.HandlerFunc(jobHandler.List))))
		mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(enableCORS(http.HandlerFunc(jobHandler.Retry))))
	}

	for name, p := range pipelines {
		askOpts := []ask.Option{ask.WithUploads(cfg.UploadDir, cfg.MaxUploadSizeMB<<20)}
		if recorder != nil {
			askOpts = append(askOpts, ask.WithFailureRecorder(recorder))
		}
		// Method checks live in the handler so other verbs get a JSON 405.
		mux.Handle("/ask/"+name, middleware.CorrelationID(enableCORS(ask.NewHandler(p, askOpts...))))
	}

	sources := make(map[string]stats.StatsSource, len(pipelines))
	tools := make(map[string]mcp.Runner, len(pipelines))
	for name, p := range pipelines {
		sources[name] = p
		tools[name] = p
	}
	statsHandler := stats.NewHandler(sources, jobCounter)
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(http.HandlerFunc(statsHandler.GetStats))))

	var mcpOpts []mcp.Option
	if recorder != nil {
		mcpOpts = append(mcpOpts, mcp.WithFailureRecorder(recorder))
	}
	// Streamable HTTP: POST for calls, GET for the server stream, DELETE to end a session.
	mux.Handle("/mcp", middleware.CorrelationID(mcp.NewHandler(tools, mcpOpts...).HTTPHandler()))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:     mux,
		Pipelines:   pipelines,
		port:        cfg.ServerPort,
		queryLogger: queryLogger,
	}, nil
}

// buildPipelines wires one pipeline per enabled variant. They share the index
// store and the reply path, so they also share a lock.
func buildPipelines(cfg *config.Config, deps *Dependencies, runner command.Runner, queryLogger *retrieval.QueryLogger) (map[string]*pipeline.Pipeline, error) {
	crawler, err := corpus.NewCrawler(corpus.CrawlOptions{
		MaxDepth:   cfg.CrawlMaxDepth,
		Timeout:    time.Duration(cfg.CrawlTimeoutSeconds) * time.Second,
		Exclusions: cfg.CrawlExclusions,
	})
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}
	acquirer := corpus.NewAcquirer(corpus.NewPDFLoader(runner, cfg.PdftotextBin), crawler)

	splitter, err := text.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	indexer := index.NewIndexer(splitter, gemini.NewEmbedder(deps.Gemini, cfg.EmbeddingModel), deps.Store)

	rr, err := reranker.NewClient(cfg.RerankProvider, cfg.RerankAPIKey)
	if err != nil {
		return nil, err
	}
	var rerank retrieval.Reranker
	if rr != nil {
		rerank = rr
	}

	answerLLM := gemini.NewGenerator(deps.Gemini, cfg.ChatModel, cfg.AnswerTemperature)
	judgeLLM := answerLLM.WithTemperature(cfg.EvaluatorTemperature)

	base := pipeline.Deps{
		Acquirer:  acquirer,
		Indexer:   indexer,
		Answerer:  retrieval.NewAnswerer(answerLLM, rerank, queryLogger, cfg.RetrievalTopK),
		Evaluator: assistant.NewEvaluator(judgeLLM),
		Fallback:  assistant.NewFallback(answerLLM),
	}

	lock := &sync.Mutex{}
	pipelines := make(map[string]*pipeline.Pipeline)

	if cfg.VariantEnabled(config.VariantLocal) {
		d := base
		d.Transcriber = whisper.NewTranscriber(runner, cfg.WhisperBin, cfg.WhisperModel)
		d.Synthesizer = gtts.NewSynthesizer(runner, cfg.GttsBin)
		pipelines[config.VariantLocal] = pipeline.New(config.VariantLocal, d, cfg.ReplyAudioPath).WithLock(lock)
	}

	if cfg.VariantEnabled(config.VariantCloud) {
		if deps.Speech == nil || deps.TTS == nil {
			return nil, errors.New("cloud variant enabled without speech clients")
		}
		d := base
		d.Transcriber = gcloud.NewTranscriber(deps.Speech, ffmpeg.NewConverter(runner, cfg.FfmpegBin))
		d.Refiner = assistant.NewRefiner(answerLLM)
		d.Synthesizer = gcloud.NewSynthesizer(deps.TTS)
		pipelines[config.VariantCloud] = pipeline.New(config.VariantCloud, d, cfg.ReplyAudioPath).WithLock(lock)
	}

	if len(pipelines) == 0 {
		return nil, errors.New("no pipeline variant enabled")
	}
	return pipelines, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		if err := a.queryLogger.Close(); err != nil {
			slog.Warn("failed to close query logger", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
