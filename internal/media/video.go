package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/atelier-ai/atelier/internal/common"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/storage"
)

const (
	defaultVideoModel = "veo-3.0-fast-generate-001"
	defaultVideoRatio = "16:9"
	videoPollInterval = 5 * time.Second
	videoEstimateSecs = 8
)

type videoBackend interface {
	StartVideo(ctx context.Context, model, prompt, aspectRatio string) (*genai.GenerateVideosOperation, error)
	WaitVideo(ctx context.Context, op *genai.GenerateVideosOperation, interval time.Duration) ([]byte, error)
}

// JobQueue enqueues a job id for the worker.
type JobQueue interface {
	PublishJob(ctx context.Context, jobID string) error
}

// VideoService splits video generation across the request path and the
// worker: Enqueue persists a job row and publishes it; Run executes
// the provider's long poll on the worker side.
type VideoService struct {
	backend  videoBackend
	queue    JobQueue
	files    storage.Store
	contents *content.Repo
}

func NewVideoService(backend videoBackend, queue JobQueue, files storage.Store, contents *content.Repo) *VideoService {
	return &VideoService{backend: backend, queue: queue, files: files, contents: contents}
}

// Enqueue records a queued job and hands it to the queue. The HTTP
// worker returns immediately; job status is polled separately.
func (s *VideoService) Enqueue(ctx context.Context, userID, prompt, model, ratio string) (*content.VideoJob, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	if model == "" {
		model = defaultVideoModel
	}
	if ratio == "" {
		ratio = defaultVideoRatio
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	job := &content.VideoJob{
		ID:        id,
		UserID:    userID,
		Prompt:    prompt,
		ModelUsed: model,
		Ratio:     ratio,
		Status:    content.JobQueued,
	}
	if err := s.contents.CreateVideoJob(ctx, job); err != nil {
		return nil, err
	}
	if err := s.queue.PublishJob(ctx, job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns the job only to its owner; "not found" hides foreign
// jobs.
func (s *VideoService) GetJob(ctx context.Context, userID, jobID string) (*content.VideoJob, error) {
	job, err := s.contents.GetVideoJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, errors.New("job not found")
	}
	return job, nil
}

// Run executes one video job end to end: start the provider
// operation, poll it to completion, store the bytes, record the
// content row, mark the job. Runs inside the queue worker only.
func (s *VideoService) Run(ctx context.Context, jobID string) error {
	if err := s.contents.MarkVideoJobRunning(ctx, jobID); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("mark running failed")
	}
	job, err := s.contents.GetVideoJob(ctx, jobID)
	if err != nil {
		return err
	}

	op, err := s.backend.StartVideo(ctx, job.ModelUsed, job.Prompt, job.Ratio)
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}
	data, err := s.backend.WaitVideo(ctx, op, videoPollInterval)
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}

	path, err := s.files.Write(data, "mp4")
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}

	dur := videoEstimateSecs
	rec := &content.GeneratedContent{
		UserID:      job.UserID,
		ContentType: content.TypeVideo,
		Prompt:      job.Prompt,
		ModelUsed:   job.ModelUsed,
		FilePath:    path,
		Ratio:       job.Ratio,
		Duration:    &dur,
	}
	if err := s.contents.Create(ctx, rec); err != nil {
		return s.fail(ctx, job.ID, err)
	}

	if err := s.contents.MarkVideoJobSucceeded(ctx, job.ID, rec.ID); err != nil {
		return err
	}
	log.Info().Str("job_id", job.ID).Str("content_id", rec.ID).Msg("video job finished")
	return nil
}

func (s *VideoService) fail(ctx context.Context, jobID string, cause error) error {
	if err := s.contents.MarkVideoJobFailed(ctx, jobID, cause.Error()); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("mark failed failed")
	}
	return cause
}
