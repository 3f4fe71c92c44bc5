package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/core"
	"surveyclean/domain/survey"
	"surveyclean/internal"
	"surveyclean/ports"
)

// JobRunner executes stored processing jobs against their surveys. Jobs run
// concurrently up to the configured bound; the engines are stateless, so
// parallel pipeline runs never share per-job state.
type JobRunner struct {
	surveys  ports.SurveyRepository
	jobs     ports.JobRepository
	reader   ports.TableReader
	pipeline *PipelineService
	sem      *semaphore.Weighted
	log      *internal.Logger
}

// NewJobRunner creates a job runner bounded to maxConcurrent parallel jobs
func NewJobRunner(surveys ports.SurveyRepository, jobs ports.JobRepository, reader ports.TableReader, pipeline *PipelineService, maxConcurrent int64, logger *internal.Logger) *JobRunner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &JobRunner{
		surveys:  surveys,
		jobs:     jobs,
		reader:   reader,
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(maxConcurrent),
		log:      logger.Named("jobs"),
	}
}

// RunJob executes one job to completion, blocking until a concurrency slot is
// free. The job record is updated on every state transition.
func (r *JobRunner) RunJob(ctx context.Context, jobID core.JobID) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire job slot: %w", err)
	}
	defer r.sem.Release(1)

	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s already finished with status %s", job.ID, job.Status)
	}
	return r.execute(ctx, job)
}

func (r *JobRunner) execute(ctx context.Context, job *survey.ProcessingJob) error {
	job.Start()
	if err := r.jobs.Update(ctx, job); err != nil {
		return err
	}
	r.log.Info("job %s started for survey %s", job.ID, job.SurveyID)

	result, runErr := r.runPipeline(ctx, job)
	if runErr != nil {
		r.log.Error("job %s failed: %v", job.ID, runErr)
		job.Fail(runErr.Error())
		if err := r.jobs.Update(ctx, job); err != nil {
			return err
		}
		return runErr
	}

	job.Complete(result)
	if err := r.jobs.Update(ctx, job); err != nil {
		return err
	}
	r.log.Info("job %s completed (%d rows in, %d rows out)", job.ID, result.RowsBefore, result.RowsAfter)
	return nil
}

func (r *JobRunner) runPipeline(ctx context.Context, job *survey.ProcessingJob) (*cleaning.PipelineResult, error) {
	s, err := r.surveys.GetByID(ctx, job.SurveyID)
	if err != nil {
		return nil, err
	}
	tbl, err := r.reader.ReadTable(s.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read survey file: %w", err)
	}
	_, result, err := r.pipeline.Run(tbl, job.Config)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunPending drains every pending job, running them concurrently within the
// runner's bound. The first error is returned after all jobs finish.
func (r *JobRunner) RunPending(ctx context.Context) error {
	pending, err := r.jobs.ListByStatus(ctx, survey.JobPending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	r.log.Info("running %d pending jobs", len(pending))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, job := range pending {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(job *survey.ProcessingJob) {
			defer wg.Done()
			defer r.sem.Release(1)
			if err := r.execute(ctx, job); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(job)
	}

	wg.Wait()
	return firstErr
}
