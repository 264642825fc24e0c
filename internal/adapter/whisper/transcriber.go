package whisper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"voicerag/internal/command"
	"voicerag/internal/rag"
)

// Transcriber runs the openai-whisper CLI on the input file as is.
type Transcriber struct {
	runner command.Runner
	bin    string
	model  string
}

func NewTranscriber(runner command.Runner, bin, model string) *Transcriber {
	if bin == "" {
		bin = "whisper"
	}
	if model == "" {
		model = "medium"
	}
	return &Transcriber{runner: runner, bin: bin, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("%w: %w", rag.ErrTranscription, err)
	}

	outDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", rag.ErrTranscription, err)
	}
	defer os.RemoveAll(outDir)

	slog.InfoContext(ctx, "transcribing audio", "path", audioPath, "model", t.model)
	if _, err := t.runner.Run(ctx, t.bin, audioPath,
		"--model", t.model,
		"--output_format", "txt",
		"--output_dir", outDir,
	); err != nil {
		return "", fmt.Errorf("%w: %w", rag.ErrTranscription, err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	text, err := os.ReadFile(filepath.Join(outDir, base+".txt")) // #nosec G304 -- file produced in our temp dir
	if err != nil {
		return "", fmt.Errorf("%w: read transcript: %w", rag.ErrTranscription, err)
	}
	return strings.TrimSpace(string(text)), nil
}
