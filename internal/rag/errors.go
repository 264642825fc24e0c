package rag

import "errors"

var (
	ErrInvalidInputKind = errors.New("invalid input type: use 'pdf' or 'url'")
	ErrEmptyCorpus      = errors.New("no documents loaded")
	ErrIngestion        = errors.New("corpus ingestion failed")
	ErrIndexing         = errors.New("indexing failed")
	ErrConversion       = errors.New("audio conversion failed")
	ErrTranscription    = errors.New("transcription failed")
	ErrRetrieval        = errors.New("retrieval answer failed")
	ErrEvaluation       = errors.New("answer evaluation failed")
	ErrRefinement       = errors.New("query refinement failed")
	ErrFallback         = errors.New("fallback answer failed")
	ErrSynthesis        = errors.New("speech synthesis failed")
)

// EmptyTranscriptionMessage is returned when the audio yields no text.
const EmptyTranscriptionMessage = "Empty transcription."
