package ffmpeg

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

// Converter produces mono 16-bit PCM WAV at 16 kHz.
type Converter struct {
	runner command.Runner
	bin    string
}

func NewConverter(runner command.Runner, bin string) *Converter {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Converter{runner: runner, bin: bin}
}

// ToLinear16 converts in and returns the WAV path plus a cleanup func that
// removes it.
func (c *Converter) ToLinear16(ctx context.Context, in string) (string, func(), error) {
	if _, err := os.Stat(in); err != nil {
		return "", nil, fmt.Errorf("%w: %w", rag.ErrConversion, err)
	}

	dir, err := os.MkdirTemp("", "convert-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", rag.ErrConversion, err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(dir, base+".wav")

	if _, err := c.runner.Run(ctx, c.bin,
		"-y",
		"-i", in,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		out,
	); err != nil {
		cleanup()
		slog.ErrorContext(ctx, "audio conversion failed", "input", in, "error", err)
		return "", nil, fmt.Errorf("%w: %w", rag.ErrConversion, err)
	}
	return out, cleanup, nil
}
