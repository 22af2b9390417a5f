package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/twpayne/go-geom"

	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
)

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Predict(ctx context.Context, imageData, description string) (models.CategoryPrediction, error) {
	args := m.Called(ctx, imageData, description)
	return args.Get(0).(models.CategoryPrediction), args.Error(1)
}

// --- Publisher Mock ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJobEvent(event models.JobEvent) {
	m.Called(event)
}

// --- JobStore Mock ---

type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) Insert(ctx context.Context, job *models.WasteJob) (*models.WasteJob, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WasteJob), args.Error(1)
}

func (m *mockJobStore) GetByID(ctx context.Context, id int64) (*models.WasteJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WasteJob), args.Error(1)
}

func (m *mockJobStore) List(ctx context.Context, filter database.JobFilter) ([]models.WasteJob, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WasteJob), args.Error(1)
}

func (m *mockJobStore) Activate(ctx context.Context, id int64, pickup *geo.Location) (*models.WasteJob, error) {
	args := m.Called(ctx, id, pickup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WasteJob), args.Error(1)
}

func (m *mockJobStore) Claim(ctx context.Context, id int64, contractorID string) (*models.WasteJob, error) {
	args := m.Called(ctx, id, contractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WasteJob), args.Error(1)
}

func (m *mockJobStore) Complete(ctx context.Context, id int64, photoURL string, at geo.Location) (*models.WasteJob, error) {
	args := m.Called(ctx, id, photoURL, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WasteJob), args.Error(1)
}

// --- PointStore Mock ---

type mockPointStore struct {
	mock.Mock
}

func (m *mockPointStore) List(ctx context.Context) ([]models.DeliveryPoint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DeliveryPoint), args.Error(1)
}

func (m *mockPointStore) ListByCategory(ctx context.Context, category models.Category) ([]models.DeliveryPoint, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DeliveryPoint), args.Error(1)
}

// --- Directions Mock ---

type mockDirections struct {
	mock.Mock
}

func (m *mockDirections) Route(ctx context.Context, origin, destination geo.Location) (*geom.LineString, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geom.LineString), args.Error(1)
}
