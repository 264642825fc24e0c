package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/generative-ai-go/genai"
	_ "github.com/lib/pq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"voicerag/internal/adapter/chromem"
	"voicerag/internal/adapter/gcloud"
	"voicerag/internal/adapter/gemini"
	wstore "voicerag/internal/adapter/weaviate"
	"voicerag/internal/config"
	"voicerag/internal/index"
)

// Dependencies are the long-lived clients shared by every pipeline run.
type Dependencies struct {
	DB     *sql.DB
	Gemini *genai.Client
	Store  index.Store
	Speech *speech.Client
	TTS    *texttospeech.Client
}

type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	if cfg.EnableFailedRuns {
		db, err := OpenDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.DB = db
	}

	store, err := openIndexStore(ctx, cfg, retryDelay)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Store = store

	deps.Gemini, err = gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		deps.Close()
		return nil, err
	}

	if cfg.VariantEnabled(config.VariantCloud) {
		if deps.Speech, err = gcloud.NewSpeechClient(ctx, cfg.GoogleApplicationCredentials); err != nil {
			deps.Close()
			return nil, err
		}
		if deps.TTS, err = gcloud.NewTextToSpeechClient(ctx, cfg.GoogleApplicationCredentials); err != nil {
			deps.Close()
			return nil, err
		}
	}

	return deps, nil
}

// OpenDatabase connects to Postgres, waiting for it to come up, and applies
// migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.PingContext(ctx); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		db.Close()
		return nil, fmt.Errorf("migration up error: %w", err)
	}
	slog.Info("migrations applied successfully")
	return db, nil
}

func openIndexStore(ctx context.Context, cfg *config.Config, retryDelay time.Duration) (index.Store, error) {
	if cfg.IndexBackend != config.IndexBackendWeaviate {
		return chromem.NewStore(cfg.IndexPath), nil
	}

	wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	store := wstore.NewStore(wClient, cfg.WeaviateClass)

	if err := EnsureSchemaWithRetry(ctx, store, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}
	return store, nil
}

// EnsureSchemaWithRetry delegates schema check to a helper with retry logic.
func EnsureSchemaWithRetry(ctx context.Context, store SchemaEnsurer, attempts int, delay time.Duration) error {
	err := errors.New("no schema attempts configured")
	for i := 0; i < attempts; i++ {
		if err = store.EnsureSchema(ctx); err == nil {
			return nil
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

func (d *Dependencies) Close() error {
	var errs []error
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	if d.Gemini != nil {
		errs = append(errs, d.Gemini.Close())
	}
	if d.Speech != nil {
		errs = append(errs, d.Speech.Close())
	}
	if d.TTS != nil {
		errs = append(errs, d.TTS.Close())
	}
	return errors.Join(errs...)
}
