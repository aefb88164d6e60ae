package gateway

import (
	"context"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
)

// JobEventReporter notifies downstream consumers about terminal job outcomes.
// Reporting is best-effort; failures never affect the job's own state.
type JobEventReporter interface {
	ReportCompleted(ctx context.Context, job *entity.Job) error
	ReportFailed(ctx context.Context, job *entity.Job) error
}
