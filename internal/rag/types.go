package rag

// InputMode selects how the corpus is acquired.
type InputMode string

const (
	InputModePDF InputMode = "pdf"
	InputModeURL InputMode = "url"
)

// Metadata keys attached to documents and chunks.
const (
	MetaSource = "source"
	MetaPage   = "page"
)

// Document is one unit of raw corpus text: a PDF page or a crawled page.
type Document struct {
	Content  string
	Metadata map[string]string
}

func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Chunk is a bounded span of a document's text carrying the parent's metadata.
type Chunk struct {
	ID       string
	Content  string
	Metadata map[string]string
	Vector   []float32
}

func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

// RetrievedChunk is a chunk returned by a similarity search.
type RetrievedChunk struct {
	Chunk
	Score float32
}

// AnswerResult is the retrieval answerer's output. Sources follow retrieval
// rank order and may repeat.
type AnswerResult struct {
	Answer  string
	Sources []string
}

// FinalResponse is the record returned to the caller of a pipeline run.
type FinalResponse struct {
	TranscribedText string   `json:"transcribed_text"`
	FinalResponse   string   `json:"final_response"`
	Sources         []string `json:"sources"`
	AudioReplyPath  string   `json:"audio_reply_path"`
}

// ErrorResponse is the payload returned instead of a FinalResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}
