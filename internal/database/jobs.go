package database

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/pkg/errs"
)

const jobsTable = "waste_jobs"

var jobColumns = []string{
	"id",
	"requester_id",
	"contractor_id",
	"category",
	"status",
	"title",
	"description",
	"photo_url",
	"image_data",
	"pickup_latitude",
	"pickup_longitude",
	"completion_latitude",
	"completion_longitude",
	"completion_photo_url",
	"created_at",
	"updated_at",
}

var returningJob = "RETURNING " + strings.Join(jobColumns, ", ")

// JobFilter narrows List. Zero values mean "any".
type JobFilter struct {
	Status       *models.Status
	Category     *models.Category
	RequesterID  string
	ContractorID string
	Limit        uint64
	Offset       uint64
}

type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Insert stores a new job and returns it with its assigned id.
func (r *JobRepository) Insert(ctx context.Context, job *models.WasteJob) (*models.WasteJob, error) {
	now := time.Now().Unix()
	query, args, err := r.db.Builder.
		Insert(jobsTable).
		Columns(
			"requester_id",
			"category",
			"status",
			"title",
			"description",
			"photo_url",
			"image_data",
			"pickup_latitude",
			"pickup_longitude",
			"created_at",
			"updated_at",
		).
		Values(
			job.RequesterID,
			string(job.Category),
			string(job.Status),
			job.Title,
			job.Description,
			job.PhotoURL,
			job.ImageData,
			job.PickupLatitude,
			job.PickupLongitude,
			now,
			now,
		).
		Suffix(returningJob).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "jobs: build insert")
	}

	var out models.WasteJob
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&out); err != nil {
		return nil, eris.Wrap(err, "jobs: insert")
	}
	return &out, nil
}

// GetByID returns ErrNotFound when no job has the given id.
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*models.WasteJob, error) {
	query, args, err := r.db.Builder.
		Select(jobColumns...).
		From(jobsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "jobs: build select")
	}

	var job models.WasteJob
	err = r.db.GetContext(ctx, &job, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(errs.ErrNotFound, "job %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: get %d", id)
	}
	return &job, nil
}

func (r *JobRepository) List(ctx context.Context, filter JobFilter) ([]models.WasteJob, error) {
	q := r.db.Builder.
		Select(jobColumns...).
		From(jobsTable).
		OrderBy("id ASC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.Category != nil {
		q = q.Where(squirrel.Eq{"category": string(*filter.Category)})
	}
	if filter.RequesterID != "" {
		q = q.Where(squirrel.Eq{"requester_id": filter.RequesterID})
	}
	if filter.ContractorID != "" {
		q = q.Where(squirrel.Eq{"contractor_id": filter.ContractorID})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit == 0 {
			// sqlite rejects OFFSET without LIMIT
			q = q.Limit(math.MaxInt64)
		}
		q = q.Offset(filter.Offset)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "jobs: build list")
	}

	jobs := []models.WasteJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, eris.Wrap(err, "jobs: list")
	}
	return jobs, nil
}

// Activate moves a draft job to active, optionally replacing its pickup
// location. It returns nil when the job was not in draft at write time.
func (r *JobRepository) Activate(ctx context.Context, id int64, pickup *geo.Location) (*models.WasteJob, error) {
	set := map[string]any{}
	if pickup != nil {
		set["pickup_latitude"] = pickup.Latitude
		set["pickup_longitude"] = pickup.Longitude
	}
	return r.transition(ctx, id, models.StatusDraft, models.StatusActive, set)
}

// Claim assigns the contractor to an active job. It returns nil when the job
// was not active at write time.
func (r *JobRepository) Claim(ctx context.Context, id int64, contractorID string) (*models.WasteJob, error) {
	return r.transition(ctx, id, models.StatusActive, models.StatusClaimed, map[string]any{
		"contractor_id": contractorID,
	})
}

// Complete records the completion proof on a claimed job. It returns nil
// when the job was not claimed at write time.
func (r *JobRepository) Complete(ctx context.Context, id int64, photoURL string, at geo.Location) (*models.WasteJob, error) {
	return r.transition(ctx, id, models.StatusClaimed, models.StatusCompleted, map[string]any{
		"completion_photo_url": photoURL,
		"completion_latitude":  at.Latitude,
		"completion_longitude": at.Longitude,
	})
}

// transition is a compare-and-swap on status: the row is only updated if it
// is still in the from state.
func (r *JobRepository) transition(
	ctx context.Context,
	id int64,
	from, to models.Status,
	set map[string]any,
) (*models.WasteJob, error) {
	query, args, err := r.db.Builder.
		Update(jobsTable).
		SetMap(set).
		Set("status", string(to)).
		Set("updated_at", time.Now().Unix()).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		Suffix(returningJob).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "jobs: build transition")
	}

	var job models.WasteJob
	err = r.db.QueryRowxContext(ctx, query, args...).StructScan(&job)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: %s -> %s for %d", from, to, id)
	}
	return &job, nil
}
