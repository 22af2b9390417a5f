package database

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/models"
)

const pointsTable = "waste_delivery_points"

var pointColumns = []string{"id", "latitude", "longitude", "description", "opening_hours", "category"}

// rows per INSERT statement; keeps postgres under its parameter limit.
const pointBatchSize = 500

type PointRepository struct {
	db *DB
}

func NewPointRepository(db *DB) *PointRepository {
	return &PointRepository{db: db}
}

// InsertIgnoreDuplicates stores points whose id is not yet known and returns
// how many rows were written.
func (r *PointRepository) InsertIgnoreDuplicates(ctx context.Context, points []models.DeliveryPoint) (int64, error) {
	return r.insert(ctx, r.db, points)
}

// ReplaceAll swaps the whole catalog in one transaction.
func (r *PointRepository) ReplaceAll(ctx context.Context, points []models.DeliveryPoint) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "points: begin")
	}
	defer tx.Rollback()

	query, args, err := r.db.Builder.Delete(pointsTable).ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "points: build delete")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, eris.Wrap(err, "points: delete")
	}

	n, err := r.insert(ctx, tx, points)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "points: commit")
	}
	return n, nil
}

func (r *PointRepository) List(ctx context.Context) ([]models.DeliveryPoint, error) {
	return r.list(ctx, nil)
}

func (r *PointRepository) ListByCategory(ctx context.Context, category models.Category) ([]models.DeliveryPoint, error) {
	return r.list(ctx, squirrel.Eq{"category": string(category)})
}

func (r *PointRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]models.DeliveryPoint, error) {
	q := r.db.Builder.
		Select(pointColumns...).
		From(pointsTable).
		OrderBy("id ASC")
	if where != nil {
		q = q.Where(where)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "points: build list")
	}

	points := []models.DeliveryPoint{}
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, eris.Wrap(err, "points: list")
	}
	return points, nil
}

func (r *PointRepository) insert(ctx context.Context, exec squirrel.ExecerContext, points []models.DeliveryPoint) (int64, error) {
	var written int64
	for start := 0; start < len(points); start += pointBatchSize {
		end := min(start+pointBatchSize, len(points))

		q := r.db.Builder.
			Insert(pointsTable).
			Columns(pointColumns...).
			Suffix("ON CONFLICT (id) DO NOTHING")
		for _, p := range points[start:end] {
			q = q.Values(p.ID, p.Latitude, p.Longitude, p.Description, p.OpeningHours, string(p.Category))
		}

		query, args, err := q.ToSql()
		if err != nil {
			return written, eris.Wrap(err, "points: build insert")
		}
		res, err := exec.ExecContext(ctx, query, args...)
		if err != nil {
			return written, eris.Wrapf(err, "points: insert batch at %d", start)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return written, eris.Wrap(err, "points: rows affected")
		}
		written += n
	}
	return written, nil
}
