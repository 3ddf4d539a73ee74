package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"closet/internal/apperrors"
	"closet/internal/models"
	"closet/internal/pathutil"
	"closet/internal/repositories"
	"closet/internal/tryon"
)

// ResultURLPrefix is the route results are served from.
const ResultURLPrefix = "/results/"

// TryOnService stages image pairs, runs the external program on the
// queue and records each run as a job.
type TryOnService struct {
	layout  tryon.Layout
	runner  tryon.Runner
	queue   *tryon.Queue
	jobRepo repositories.TryOnJobRepository
	allowed []string
	events  EventPublisher
}

// NewTryOnService creates a new TryOnService.
func NewTryOnService(layout tryon.Layout, runner tryon.Runner, queue *tryon.Queue, jobRepo repositories.TryOnJobRepository, allowed []string, events EventPublisher) *TryOnService {
	return &TryOnService{
		layout:  layout,
		runner:  runner,
		queue:   queue,
		jobRepo: jobRepo,
		allowed: allowed,
		events:  events,
	}
}

// VirtualTryOn runs one try-on and blocks until the result exists or the
// run fails. If ctx ends first the run is cancelled.
func (s *TryOnService) VirtualTryOn(ctx context.Context, userID uint, userImage, clothingImage *multipart.FileHeader) (*models.TryOnJob, error) {
	job, handle, err := s.submit(ctx, userID, userImage, clothingImage)
	if err != nil {
		return nil, err
	}

	if err := handle.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			handle.Cancel()
			<-handle.Done()
			cancelled := apperrors.ExternalProcess("try-on was cancelled", "", ctx.Err())
			// A task cancelled while still queued never records its outcome.
			if current, getErr := s.jobRepo.GetForUser(job.ID, userID); getErr == nil && current.Status == models.TryOnStatusQueued {
				s.finish(job, cancelled)
			}
			return nil, cancelled
		}
		return nil, err
	}

	job.Status = models.TryOnStatusSucceeded
	job.ResultURL = ResultURLPrefix + job.ResultFilename
	return job, nil
}

// EnqueueTryOn stages the pair and returns the queued job without waiting.
func (s *TryOnService) EnqueueTryOn(ctx context.Context, userID uint, userImage, clothingImage *multipart.FileHeader) (*models.TryOnJob, error) {
	job, _, err := s.submit(ctx, userID, userImage, clothingImage)
	return job, err
}

// GetJob returns a job owned by the user.
func (s *TryOnService) GetJob(userID uint, id string) (*models.TryOnJob, error) {
	job, err := s.jobRepo.GetForUser(id, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("try-on job not found")
		}
		return nil, apperrors.Internal("failed to load try-on job", err)
	}
	return job, nil
}

// ResultPath resolves a result filename to a file on disk.
func (s *TryOnService) ResultPath(filename string) (string, error) {
	if !s.layout.ResultExists(filename) {
		return "", apperrors.NotFound("result not found")
	}
	path, err := s.layout.ResultPath(filename)
	if err != nil {
		return "", apperrors.NotFound("result not found")
	}
	return path, nil
}

func (s *TryOnService) submit(ctx context.Context, userID uint, userImage, clothingImage *multipart.FileHeader) (*models.TryOnJob, *tryon.Handle, error) {
	if userImage == nil || clothingImage == nil {
		return nil, nil, apperrors.Validation("Both user image and clothing image are required")
	}
	if userImage.Filename == "" || clothingImage.Filename == "" {
		return nil, nil, apperrors.Validation("No selected file")
	}
	for _, fh := range []*multipart.FileHeader{userImage, clothingImage} {
		if !pathutil.HasAllowedExtension(fh.Filename, s.allowed) {
			return nil, nil, apperrors.Validation(fmt.Sprintf("Invalid file type: %s", pathutil.SanitizeFilename(fh.Filename)))
		}
	}

	pair, err := s.stage(userImage, clothingImage)
	if err != nil {
		return nil, nil, err
	}

	job := &models.TryOnJob{
		UserID:         userID,
		UserImage:      pair.UserImage,
		ClothingImage:  pair.ClothingImage,
		ResultFilename: pair.ResultName(),
		Status:         models.TryOnStatusQueued,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, nil, apperrors.Internal("failed to record try-on job", err)
	}

	handle, err := s.queue.Submit(ctx, s.task(job, pair))
	if err != nil {
		s.finish(job, apperrors.Internal("try-on queue unavailable", err))
		return nil, nil, apperrors.Internal("try-on queue unavailable", err)
	}
	return job, handle, nil
}

func (s *TryOnService) stage(userImage, clothingImage *multipart.FileHeader) (tryon.Pair, error) {
	u, err := userImage.Open()
	if err != nil {
		return tryon.Pair{}, apperrors.Internal("failed to read user image", err)
	}
	defer u.Close()
	c, err := clothingImage.Open()
	if err != nil {
		return tryon.Pair{}, apperrors.Internal("failed to read clothing image", err)
	}
	defer c.Close()

	pair, err := s.layout.Stage(u, pathutil.Extension(userImage.Filename), c, pathutil.Extension(clothingImage.Filename))
	if err != nil {
		return tryon.Pair{}, apperrors.Internal("failed to stage try-on images", err)
	}
	return pair, nil
}

// task writes the manifest and runs the program. The manifest is shared,
// so it is written here, on the worker, rather than at staging time.
func (s *TryOnService) task(job *models.TryOnJob, pair tryon.Pair) tryon.Task {
	return func(ctx context.Context) error {
		if err := s.jobRepo.UpdateStatus(job.ID, models.TryOnStatusRunning, "", "", nil); err != nil {
			log.Printf("Failed to mark try-on job %s running: %v", job.ID, err)
		}

		err := s.run(ctx, pair)
		s.finish(job, err)
		return err
	}
}

func (s *TryOnService) run(ctx context.Context, pair tryon.Pair) error {
	if err := s.layout.WriteManifest(pair); err != nil {
		return apperrors.Internal("failed to write try-on manifest", err)
	}
	if err := s.runner.Run(ctx); err != nil {
		return err
	}
	if !s.layout.ResultExists(pair.ResultName()) {
		return apperrors.NotFound("Result image not found")
	}
	return nil
}

// finish records the outcome of a run and publishes it.
func (s *TryOnService) finish(job *models.TryOnJob, runErr error) {
	now := time.Now()
	status, resultURL, errMsg := models.TryOnStatusSucceeded, ResultURLPrefix+job.ResultFilename, ""
	if runErr != nil {
		status, resultURL, errMsg = models.TryOnStatusFailed, "", describe(runErr)
	}

	if err := s.jobRepo.UpdateStatus(job.ID, status, resultURL, errMsg, &now); err != nil {
		log.Printf("Failed to record try-on job %s as %s: %v", job.ID, status, err)
	}

	payload := map[string]interface{}{"job_id": job.ID, "user_id": job.UserID}
	if runErr != nil {
		log.Printf("Try-on job %s failed: %v", job.ID, runErr)
		payload["error"] = errMsg
		publish(s.events, EventTryOnFailed, payload)
		return
	}
	payload["result_url"] = resultURL
	publish(s.events, EventTryOnCompleted, payload)
}

// describe renders an error for the job record: message plus any captured
// program output.
func describe(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + ": " + appErr.Details
		}
		return appErr.Message
	}
	return err.Error()
}
