package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/pipeline"
)

// Job is one evidence document to produce.
type Job struct {
	ID          uuid.UUID
	Request     pipeline.Request
	SubmittedAt time.Time
	TraceID     string
}

// Outcome is reported once per accepted job, after it finished or timed out.
type Outcome struct {
	Job      Job
	Result   pipeline.Result
	Err      error
	WorkerID int
	Elapsed  time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}
