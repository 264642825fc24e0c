package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"voicerag/internal/rag"
)

type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]rag.Document, error)
}

type SiteCrawler interface {
	Crawl(ctx context.Context, startURL string) ([]rag.Document, error)
}

// Acquirer turns a pdf path or a start URL into corpus documents.
type Acquirer struct {
	pdf     DocumentLoader
	crawler SiteCrawler
}

func NewAcquirer(pdf DocumentLoader, crawler SiteCrawler) *Acquirer {
	return &Acquirer{pdf: pdf, crawler: crawler}
}

// ValidateMode reports whether mode names a supported corpus source.
func ValidateMode(mode rag.InputMode) error {
	switch mode {
	case rag.InputModePDF, rag.InputModeURL:
		return nil
	default:
		return rag.ErrInvalidInputKind
	}
}

func (a *Acquirer) Acquire(ctx context.Context, mode rag.InputMode, value string) ([]rag.Document, error) {
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}

	var docs []rag.Document
	var err error
	switch mode {
	case rag.InputModePDF:
		docs, err = a.pdf.Load(ctx, value)
	case rag.InputModeURL:
		docs, err = a.crawler.Crawl(ctx, value)
	}
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s %q", rag.ErrEmptyCorpus, mode, value)
	}

	slog.InfoContext(ctx, "corpus acquired", "mode", mode, "value", value, "documents", len(docs))
	return docs, nil
}
