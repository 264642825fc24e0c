package job

import (
	"encoding/json"
	"time"
)

// Job is a pipeline run that ended in a fatal error.
type Job struct {
	ID        string          `json:"id"`
	Variant   string          `json:"variant"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
