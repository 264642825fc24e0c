package gcloud

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"google.golang.org/api/option"
)

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// NewSpeechClient falls back to application default credentials when
// credentialsFile is empty.
func NewSpeechClient(ctx context.Context, credentialsFile string) (*speech.Client, error) {
	c, err := speech.NewClient(ctx, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return c, nil
}

func NewTextToSpeechClient(ctx context.Context, credentialsFile string) (*texttospeech.Client, error) {
	c, err := texttospeech.NewClient(ctx, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return c, nil
}
