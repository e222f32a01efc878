package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/wisdomhub/wisdom-hub/internal/queue"
)

// Generator is the thumbnail backend the worker drives
type Generator interface {
	Generate(originalPath string) ([]string, error)
	Delete(originalPath string)
}

// Thumbnailer processes cover-image thumbnail jobs
type Thumbnailer struct {
	generator Generator
	jobQueue  queue.JobQueue // For re-enqueueing jobs with delays
}

// NewThumbnailer creates a new thumbnail worker
func NewThumbnailer(generator Generator, jobQueue queue.JobQueue) *Thumbnailer {
	return &Thumbnailer{
		generator: generator,
		jobQueue:  jobQueue,
	}
}

// ProcessThumbnailJob renders the thumbnail set for one uploaded cover
func (w *Thumbnailer) ProcessThumbnailJob(ctx context.Context, job *queue.Job) error {
	path, ok := job.ImagePath()
	if !ok {
		return fmt.Errorf("image_path is required for thumbnail job")
	}

	paths, err := w.generator.Generate(path)
	if err != nil {
		return fmt.Errorf("failed to generate thumbnails: %w", err)
	}

	log.Printf("Generated %d thumbnails for %s (job %s)", len(paths), path, job.ID)
	return nil
}

// ProcessCleanupJob removes the thumbnail set for a deleted cover
func (w *Thumbnailer) ProcessCleanupJob(ctx context.Context, job *queue.Job) error {
	path, ok := job.ImagePath()
	if !ok {
		return fmt.Errorf("image_path is required for cleanup job")
	}

	w.generator.Delete(path)
	log.Printf("Removed thumbnails for %s (job %s)", path, job.ID)
	return nil
}

// ProcessJob processes a job based on its type
func (w *Thumbnailer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		log.Printf("Job %s expired (NotAfter: %v), dropping", job.ID, job.NotAfter)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack expired job: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeThumbnail:
		if err := w.ProcessThumbnailJob(ctx, job); err != nil {
			return w.handleJobError(msg, job, err, "thumbnail")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeThumbnailCleanup:
		if err := w.ProcessCleanupJob(ctx, job); err != nil {
			// Cleanup failures leave orphan files, not broken state
			if nackErr := msg.Nack(false); nackErr != nil {
				log.Printf("Failed to nack cleanup job: %v", nackErr)
			}
			return fmt.Errorf("cleanup failed: %w", err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack cleanup job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries failed jobs until MaxRetries, then dead-letters them
func (w *Thumbnailer) handleJobError(msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
