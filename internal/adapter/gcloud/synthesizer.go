package gcloud

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"voicerag/internal/rag"
)

type SynthesizeClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// Synthesizer renders text with a female en-US voice as MP3.
type Synthesizer struct {
	client SynthesizeClient
}

func NewSynthesizer(client SynthesizeClient) *Synthesizer {
	return &Synthesizer{client: client}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, outputPath string) error {
	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: %w", rag.ErrSynthesis, err)
		}
	}
	if err := os.WriteFile(outputPath, resp.GetAudioContent(), 0o644); err != nil { // #nosec G306 -- reply audio is served to callers
		return fmt.Errorf("%w: write audio: %w", rag.ErrSynthesis, err)
	}
	return nil
}
