package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/mayurbijarniya/nutriai/internal/ai"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AIJob is one unit of model work. Image jobs go to the vision model,
// text jobs to the search model. The worker writes the answer into Text
// before signalling Done.
type AIJob struct {
	ID     string
	Scope  string
	Prompt string
	Image  []byte
	Text   string
	Ctx    context.Context
	Done   chan error
}

type JobQueue struct {
	jobs    chan *AIJob
	ai      *ai.Client
	running atomic.Int32
	workers int
}

// NewJobQueue initializes a new job queue that limits the
// max amount of jobs that can be queued at once
func NewJobQueue(client *ai.Client) *JobQueue {
	maxJobs := viper.GetInt("ai.max_jobs")
	workers := viper.GetInt("ai.workers")

	zap.L().Debug("Initializing job queue", zap.Int("max_jobs", maxJobs), zap.Int("workers", workers))

	return &JobQueue{
		jobs:    make(chan *AIJob, maxJobs),
		ai:      client,
		workers: workers,
	}
}

func (q *JobQueue) StartWorkerPool() {
	for range q.workers {
		go q.worker()
	}
}

func (q *JobQueue) worker() {
	for job := range q.jobs {
		err := q.runJob(job)

		job.Done <- err
		close(job.Done)

		q.running.Add(-1)

		if err != nil {
			zap.L().Error("Model job finished with an error",
				zap.String("scope", job.Scope),
				zap.String("job_id", job.ID),
				zap.Error(err))
		} else {
			zap.L().Debug("Model job finished successfully", zap.String("job_id", job.ID))
		}
	}
}

func (q *JobQueue) runJob(job *AIJob) error {
	var err error

	if job.Image != nil {
		job.Text, err = q.ai.AnalyzeMeal(job.Ctx, job.Prompt, job.Image)
	} else {
		job.Text, err = q.ai.GenerateText(job.Ctx, job.Prompt)
	}

	return err
}

func (q *JobQueue) Enqueue(job *AIJob) error {
	select {
	case q.jobs <- job:
		q.running.Add(1)
		zap.L().Debug("New model job enqueued", zap.Int32("enqueued", q.running.Load()), zap.String("scope", job.Scope))
		return nil
	default:
		return errors.New("job queue full")
	}
}

// Running reports how many jobs are queued or in flight.
func (q *JobQueue) Running() int32 {
	return q.running.Load()
}
