package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"voicerag/internal/pipeline"
	"voicerag/internal/rag"
)

var ErrUnknownVariant = errors.New("pipeline variant not enabled")

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type Service struct {
	repo    Repository
	runners map[string]Runner
}

func NewService(repo Repository, runners map[string]Runner) *Service {
	return &Service{repo: repo, runners: runners}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// RecordFailure stores req so the run can be retried. Requests rejected for
// their input kind are not stored since a retry repeats the same rejection.
func (s *Service) RecordFailure(ctx context.Context, variant string, req pipeline.Request, cause error) error {
	if errors.Is(cause, rag.ErrInvalidInputKind) {
		slog.InfoContext(ctx, "not recording rejected request", "variant", variant, "error", cause)
		return nil
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	j := &Job{Variant: variant, Payload: payload, Error: cause.Error()}
	if err := s.repo.Save(ctx, j); err != nil {
		return err
	}
	slog.InfoContext(ctx, "failed run recorded", "id", j.ID, "variant", variant)
	return nil
}

// Retry re-runs a stored request on its original variant. The record is
// removed on success and its retry count bumped on failure.
func (s *Service) Retry(ctx context.Context, id string) (pipeline.Result, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.Result{}, err
	}

	runner, ok := s.runners[j.Variant]
	if !ok {
		return pipeline.Result{}, fmt.Errorf("%w: %s", ErrUnknownVariant, j.Variant)
	}

	var req pipeline.Request
	if err := json.Unmarshal(j.Payload, &req); err != nil {
		return pipeline.Result{}, fmt.Errorf("decode payload: %w", err)
	}

	res, runErr := runner.Run(ctx, req)
	if runErr != nil {
		if err := s.repo.MarkRetried(ctx, id, runErr.Error()); err != nil {
			slog.ErrorContext(ctx, "failed to update failed run", "id", id, "error", err)
		}
		return pipeline.Result{}, runErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pipeline.Result{}, err
	}
	return res, nil
}
