package gcloud

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
)

const (
	languageCode    = "en-US"
	sampleRateHertz = 16000
)

// RecognizeClient is the part of the Speech-to-Text client we call.
type RecognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

type Converter interface {
	ToLinear16(ctx context.Context, in string) (string, func(), error)
}

type Transcriber struct {
	client    RecognizeClient
	converter Converter
}

func NewTranscriber(client RecognizeClient, converter Converter) *Transcriber {
	return &Transcriber{client: client, converter: converter}
}

// Transcribe converts the audio to LINEAR16 and sends it to Google Speech.
// A conversion failure is returned. Recognition failures are logged and
// yield an empty transcript.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	wavPath, cleanup, err := t.converter.ToLinear16(ctx, audioPath)
	if err != nil {
		return "", err
	}
	defer cleanup()

	content, err := os.ReadFile(wavPath) // #nosec G304 -- path produced by the converter
	if err != nil {
		slog.WarnContext(ctx, "failed to read converted audio", "path", wavPath, "error", err)
		return "", nil
	}

	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: sampleRateHertz,
			LanguageCode:    languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		slog.WarnContext(ctx, "speech recognition failed", "error", err)
		return "", nil
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, alts[0].GetTranscript())
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}
