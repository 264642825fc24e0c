package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"voicerag/internal/middleware"
	"voicerag/internal/pipeline"
)

type JobCounter interface {
	Count(ctx context.Context) (int, error)
}

type StatsSource interface {
	Stats() pipeline.Stats
}

type Handler struct {
	variants map[string]StatsSource
	jobs     JobCounter
}

// NewHandler reports run counters per variant. jobs may be nil when failed
// runs are not stored.
func NewHandler(variants map[string]StatsSource, jobs JobCounter) *Handler {
	return &Handler{variants: variants, jobs: jobs}
}

type StatsResponse struct {
	Variants   map[string]pipeline.Stats `json:"variants"`
	FailedJobs *int                      `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	resp := StatsResponse{Variants: make(map[string]pipeline.Stats, len(h.variants))}
	for name, v := range h.variants {
		resp.Variants[name] = v.Stats()
	}

	if h.jobs != nil {
		jCount, err := h.jobs.Count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count jobs", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
			return
		}
		resp.FailedJobs = &jCount
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
