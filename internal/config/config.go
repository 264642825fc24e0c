package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	// Language models
	GeminiAPIKey         string  `envconfig:"GEMINI_API_KEY"`
	ChatModel            string  `envconfig:"CHAT_MODEL" default:"gemini-1.5-flash"`
	EmbeddingModel       string  `envconfig:"EMBEDDING_MODEL" default:"embedding-001"`
	AnswerTemperature    float32 `envconfig:"ANSWER_TEMPERATURE" default:"0.3"`
	EvaluatorTemperature float32 `envconfig:"EVALUATOR_TEMPERATURE" default:"0.2"`

	// Index
	IndexBackend   string `envconfig:"INDEX_BACKEND" default:"chromem"`
	IndexPath      string `envconfig:"INDEX_PATH" default:"rag_index"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateClass  string `envconfig:"WEAVIATE_CLASS" default:"CorpusChunk"`

	// Corpus
	CrawlMaxDepth       int      `envconfig:"CRAWL_MAX_DEPTH" default:"3"`
	CrawlTimeoutSeconds int      `envconfig:"CRAWL_TIMEOUT_SECONDS" default:"10"`
	CrawlExclusions     []string `envconfig:"CRAWL_EXCLUSIONS"`
	ChunkSize           int      `envconfig:"CHUNK_SIZE" default:"300"`
	ChunkOverlap        int      `envconfig:"CHUNK_OVERLAP" default:"100"`

	// Retrieval
	RetrievalTopK  int    `envconfig:"RETRIEVAL_TOP_K" default:"10"`
	RerankProvider string `envconfig:"RERANK_PROVIDER" default:"none"`
	RerankAPIKey   string `envconfig:"RERANK_API_KEY"`

	// External tools
	PdftotextBin string `envconfig:"PDFTOTEXT_BIN" default:"pdftotext"`
	FfmpegBin    string `envconfig:"FFMPEG_BIN" default:"ffmpeg"`
	WhisperBin   string `envconfig:"WHISPER_BIN" default:"whisper"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:"medium"`
	GttsBin      string `envconfig:"GTTS_BIN" default:"gtts-cli"`

	// Variants and their credentials
	EnabledVariants              []string `envconfig:"ENABLED_VARIANTS" default:"local"`
	GoogleApplicationCredentials string   `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	TwilioAccountSID             string   `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken              string   `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber            string   `envconfig:"TWILIO_PHONE_NUMBER"`
	ReplyAudioPath               string   `envconfig:"REPLY_AUDIO_PATH" default:"assistant_reply.mp3"`

	// Failed run store
	EnableFailedRuns bool   `envconfig:"ENABLE_FAILED_RUNS" default:"false"`
	DBHost           string `envconfig:"DB_HOST" default:"postgres"`
	DBPort           int    `envconfig:"DB_PORT" default:"5432"`
	DBUser           string `envconfig:"DB_USER" default:"voicerag"`
	DBPass           string `envconfig:"DB_PASS" default:"password"`
	DBName           string `envconfig:"DB_NAME" default:"voicerag"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidValue)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidValue)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("%w: RETRIEVAL_TOP_K must be positive", ErrInvalidValue)
	}
	if c.IndexBackend != IndexBackendChromem && c.IndexBackend != IndexBackendWeaviate {
		return fmt.Errorf("%w: INDEX_BACKEND %q", ErrInvalidValue, c.IndexBackend)
	}
	if len(c.EnabledVariants) == 0 {
		return fmt.Errorf("%w: ENABLED_VARIANTS", ErrMissingRequired)
	}
	for _, v := range c.EnabledVariants {
		if v != VariantLocal && v != VariantCloud {
			return fmt.Errorf("%w: ENABLED_VARIANTS contains %q", ErrInvalidValue, v)
		}
	}
	if c.VariantEnabled(VariantCloud) {
		if err := c.ValidateCloud(); err != nil {
			return err
		}
	}
	if c.EnableFailedRuns {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	return nil
}

// ValidateCloud checks the credentials the cloud variant needs at process start.
func (c *Config) ValidateCloud() error {
	required := []struct {
		key   string
		value string
	}{
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"GOOGLE_APPLICATION_CREDENTIALS", c.GoogleApplicationCredentials},
		{"TWILIO_ACCOUNT_SID", c.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", c.TwilioAuthToken},
		{"TWILIO_PHONE_NUMBER", c.TwilioPhoneNumber},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequired, r.key)
		}
	}
	return nil
}

func (c *Config) VariantEnabled(name string) bool {
	return slices.Contains(c.EnabledVariants, name)
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
