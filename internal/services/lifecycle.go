package services

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/pkg/errs"
)

const defaultClassifyTimeout = 30 * time.Second

// JobStore persists waste jobs. Activate, Claim and Complete are conditional
// writes that return a nil job when the row was not in the source state.
type JobStore interface {
	Insert(ctx context.Context, job *models.WasteJob) (*models.WasteJob, error)
	GetByID(ctx context.Context, id int64) (*models.WasteJob, error)
	List(ctx context.Context, filter database.JobFilter) ([]models.WasteJob, error)
	Activate(ctx context.Context, id int64, pickup *geo.Location) (*models.WasteJob, error)
	Claim(ctx context.Context, id int64, contractorID string) (*models.WasteJob, error)
	Complete(ctx context.Context, id int64, photoURL string, at geo.Location) (*models.WasteJob, error)
}

// Classifier guesses the category of the item in a photo.
type Classifier interface {
	Predict(ctx context.Context, imageData, description string) (models.CategoryPrediction, error)
}

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	PublishJobEvent(event models.JobEvent)
}

// Submission is a requester's new job before classification.
type Submission struct {
	ImageData   string
	PhotoURL    *string
	Description *string
	Category    *models.Category
	Pickup      geo.Location
}

// JobQuery lists jobs, optionally only those within RadiusKm of Near.
type JobQuery struct {
	Filter   database.JobFilter
	Near     *geo.Location
	RadiusKm float64
}

type JobService struct {
	jobs            JobStore
	classifier      Classifier
	publisher       EventPublisher
	classifyTimeout time.Duration
}

// NewJobService wires the lifecycle. publisher may be nil.
func NewJobService(jobs JobStore, classifier Classifier, publisher EventPublisher, classifyTimeout time.Duration) *JobService {
	if classifyTimeout <= 0 {
		classifyTimeout = defaultClassifyTimeout
	}
	return &JobService{
		jobs:            jobs,
		classifier:      classifier,
		publisher:       publisher,
		classifyTimeout: classifyTimeout,
	}
}

// Create classifies the photo, reconciles the category and stores a draft
// job. Nothing is stored when any step fails.
func (s *JobService) Create(ctx context.Context, requesterID string, sub Submission) (*models.WasteJob, error) {
	if strings.TrimSpace(requesterID) == "" {
		return nil, eris.Wrap(errs.ErrInvalidInput, "requester id is required")
	}
	if strings.TrimSpace(sub.ImageData) == "" {
		return nil, eris.Wrap(errs.ErrInvalidInput, "image data is required")
	}
	if err := sub.Pickup.Validate(); err != nil {
		return nil, err
	}
	if sub.Category != nil && !sub.Category.Valid() {
		return nil, eris.Wrapf(errs.ErrInvalidCategory, "category %q", *sub.Category)
	}

	logger := zap.L().With(zap.String("requester_id", requesterID))

	description := ""
	if sub.Description != nil {
		description = *sub.Description
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	prediction, err := s.classifier.Predict(classifyCtx, sub.ImageData, description)
	cancel()
	if err != nil {
		logger.Warn("classification failed", zap.Error(err))
		return nil, eris.Wrapf(errs.ErrClassificationUnavailable, "classify: %v", err)
	}

	category, title, err := Reconcile(sub.Category, prediction)
	if err != nil {
		logger.Info("submission rejected",
			zap.String("predicted", prediction.Category),
			zap.String("reason", errs.Code(err)),
		)
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = string(category)
	}

	job, err := s.jobs.Insert(ctx, &models.WasteJob{
		RequesterID:     requesterID,
		Category:        category,
		Status:          models.StatusDraft,
		Title:           title,
		Description:     sub.Description,
		PhotoURL:        sub.PhotoURL,
		ImageData:       sub.ImageData,
		PickupLatitude:  sub.Pickup.Latitude,
		PickupLongitude: sub.Pickup.Longitude,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("job created", zap.Int64("job_id", job.ID), zap.String("category", string(job.Category)))
	s.publish(models.EventJobCreated, job)
	return job, nil
}

// Activate publishes a draft job, optionally moving its pickup location.
func (s *JobService) Activate(ctx context.Context, jobID int64, newPickup *geo.Location) (*models.WasteJob, error) {
	if newPickup != nil {
		if err := newPickup.Validate(); err != nil {
			return nil, err
		}
	}
	if err := s.expect(ctx, jobID, models.StatusActive); err != nil {
		return nil, err
	}

	job, err := s.jobs.Activate(ctx, jobID, newPickup)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, eris.Wrapf(errs.ErrStorageConflict, "activate job %d", jobID)
	}

	zap.L().Info("job activated", zap.Int64("job_id", jobID))
	s.publish(models.EventJobActivated, job)
	return job, nil
}

// Claim assigns an active job to a contractor. When two contractors race,
// exactly one wins; the other gets ErrStorageConflict.
func (s *JobService) Claim(ctx context.Context, jobID int64, contractorID string) (*models.WasteJob, error) {
	if strings.TrimSpace(contractorID) == "" {
		return nil, eris.Wrap(errs.ErrInvalidInput, "contractor id is required")
	}
	if err := s.expect(ctx, jobID, models.StatusClaimed); err != nil {
		return nil, err
	}

	job, err := s.jobs.Claim(ctx, jobID, contractorID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, eris.Wrapf(errs.ErrStorageConflict, "claim job %d", jobID)
	}

	zap.L().Info("job claimed", zap.Int64("job_id", jobID), zap.String("contractor_id", contractorID))
	s.publish(models.EventJobClaimed, job)
	return job, nil
}

// Complete records the drop-off proof on a claimed job.
func (s *JobService) Complete(ctx context.Context, jobID int64, photoURL string, at geo.Location) (*models.WasteJob, error) {
	if err := at.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(photoURL) == "" {
		return nil, eris.Wrap(errs.ErrInvalidInput, "completion photo url is required")
	}
	if err := s.expect(ctx, jobID, models.StatusCompleted); err != nil {
		return nil, err
	}

	job, err := s.jobs.Complete(ctx, jobID, photoURL, at)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, eris.Wrapf(errs.ErrStorageConflict, "complete job %d", jobID)
	}

	zap.L().Info("job completed", zap.Int64("job_id", jobID))
	s.publish(models.EventJobCompleted, job)
	return job, nil
}

func (s *JobService) Get(ctx context.Context, jobID int64) (*models.WasteJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

func (s *JobService) List(ctx context.Context, q JobQuery) ([]models.WasteJob, error) {
	if q.Near != nil {
		if err := q.Near.Validate(); err != nil {
			return nil, err
		}
	}

	if q.Near == nil || q.RadiusKm <= 0 {
		return s.jobs.List(ctx, q.Filter)
	}

	// limit and offset page over the jobs inside the radius
	filter := q.Filter
	filter.Limit, filter.Offset = 0, 0
	jobs, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	nearby := make([]models.WasteJob, 0, len(jobs))
	for _, j := range jobs {
		in, err := j.Location().Within(*q.Near, q.RadiusKm)
		if err != nil {
			continue
		}
		if in {
			nearby = append(nearby, j)
		}
	}
	return page(nearby, q.Filter.Offset, q.Filter.Limit), nil
}

func page(jobs []models.WasteJob, offset, limit uint64) []models.WasteJob {
	if offset >= uint64(len(jobs)) {
		return []models.WasteJob{}
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < uint64(len(jobs)) {
		jobs = jobs[:limit]
	}
	return jobs
}

// expect checks that the job exists and that target is its next status.
func (s *JobService) expect(ctx context.Context, jobID int64, target models.Status) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	next, ok := job.Status.Next()
	if !ok || next != target {
		return eris.Wrapf(errs.ErrInvalidTransition, "job %d is %s, cannot become %s", jobID, job.Status, target)
	}
	return nil
}

func (s *JobService) publish(eventType string, job *models.WasteJob) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishJobEvent(models.JobEvent{Type: eventType, Job: job.ToResponse()})
}
