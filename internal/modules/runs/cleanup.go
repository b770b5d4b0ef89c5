package runs

import (
	"time"

	"github.com/rs/zerolog"
)

// RetentionJob prunes optimization runs older than the configured retention
// window. It implements the scheduler Job interface.
type RetentionJob struct {
	repo   *Repository
	maxAge time.Duration
	log    zerolog.Logger
}

// NewRetentionJob creates a retention job keeping runs younger than maxAge.
func NewRetentionJob(repo *Repository, maxAge time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:   repo,
		maxAge: maxAge,
		log:    log.With().Str("job", "runs_retention").Logger(),
	}
}

// Name returns the job name.
func (j *RetentionJob) Name() string {
	return "runs_retention"
}

// Run deletes runs older than the retention window.
func (j *RetentionJob) Run() error {
	deleted, err := j.repo.PruneOlderThan(time.Now().Add(-j.maxAge))
	if err != nil {
		return err
	}
	j.log.Debug().Int64("deleted", deleted).Msg("Run retention sweep complete")
	return nil
}
