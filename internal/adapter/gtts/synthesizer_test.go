package gtts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicerag/internal/rag"
)

type recordingRunner struct {
	name string
	args []string
	text string
	err  error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name = name
	r.args = args
	if b, err := os.ReadFile(args[1]); err == nil {
		r.text = string(b)
	}
	return nil, r.err
}

func TestSynthesizer_Synthesize(t *testing.T) {
	runner := &recordingRunner{}
	out := filepath.Join(t.TempDir(), "replies", "assistant_reply.mp3")

	err := NewSynthesizer(runner, "").Synthesize(context.Background(), "Hello there.", out)
	require.NoError(t, err)

	assert.Equal(t, "gtts-cli", runner.name)
	assert.Equal(t, "--file", runner.args[0])
	assert.Equal(t, []string{"--output", out}, runner.args[2:])
	assert.Equal(t, "Hello there.", runner.text)
	_, statErr := os.Stat(runner.args[1])
	assert.True(t, os.IsNotExist(statErr), "temp text file should be removed")
}

func TestSynthesizer_Failure(t *testing.T) {
	runner := &recordingRunner{err: errors.New("connection refused")}
	err := NewSynthesizer(runner, "/opt/gtts-cli").Synthesize(context.Background(), "x", filepath.Join(t.TempDir(), "a.mp3"))

	assert.ErrorIs(t, err, rag.ErrSynthesis)
	assert.Equal(t, "/opt/gtts-cli", runner.name)
}
