package corpus

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"voicerag/internal/command"
	"voicerag/internal/rag"
)

// PDFLoader extracts one document per page using pdftotext.
type PDFLoader struct {
	runner command.Runner
	bin    string
}

func NewPDFLoader(runner command.Runner, bin string) *PDFLoader {
	if bin == "" {
		bin = "pdftotext"
	}
	return &PDFLoader{runner: runner, bin: bin}
}

// Load reads the file at path. Pages whose text is blank are skipped but keep
// their position in the numbering.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]rag.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", rag.ErrIngestion, err)
	}

	out, err := l.runner.Run(ctx, l.bin, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("%w: extract pdf text: %w", rag.ErrIngestion, err)
	}

	var docs []rag.Document
	for i, page := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		n := strconv.Itoa(i + 1)
		docs = append(docs, rag.Document{
			Content: page,
			Metadata: map[string]string{
				rag.MetaSource: path + "#page=" + n,
				rag.MetaPage:   n,
			},
		})
	}
	return docs, nil
}
