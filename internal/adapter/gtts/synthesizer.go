package gtts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"voicerag/internal/command"
	"voicerag/internal/rag"
)

// Synthesizer writes MP3 speech with the gTTS command line tool.
type Synthesizer struct {
	runner command.Runner
	bin    string
}

func NewSynthesizer(runner command.Runner, bin string) *Synthesizer {
	if bin == "" {
		bin = "gtts-cli"
	}
	return &Synthesizer{runner: runner, bin: bin}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, outputPath string) error {
	// Text goes through a file so long answers never hit argv limits.
	f, err := os.CreateTemp("", "reply-*.txt")
	if err != nil {
		return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
		}
	}

	if _, err := s.runner.Run(ctx, s.bin, "--file", f.Name(), "--output", outputPath); err != nil {
		return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
	}
	return nil
}
