package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockMatcherService implements services.MatcherService for handler tests.
type mockMatcherService struct {
	lastQuery *models.MatchQuery
	result    *models.MatchResult
	err       error
}

func (m *mockMatcherService) Match(ctx context.Context, query *models.MatchQuery) (*models.MatchResult, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockAppointmentService implements services.AppointmentService for
// handler tests.
type mockAppointmentService struct {
	scheduled    *models.Appointment
	scheduleErr  error
	listFilter   models.AppointmentFilter
	listResults  []*models.Appointment
	listErr      error
	scheduleCall int
}

func (m *mockAppointmentService) Schedule(ctx context.Context, appt *models.Appointment) error {
	m.scheduleCall++
	if m.scheduleErr != nil {
		return m.scheduleErr
	}
	appt.ID = uuid.New()
	m.scheduled = appt
	return nil
}

func (m *mockAppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	m.listFilter = filter
	return m.listResults, m.listErr
}

// mockListingRepo implements repositories.ListingRepository for handler
// tests.
type mockListingRepo struct {
	listings []*models.Listing
	listing  *models.Listing
	listErr  error
	getErr   error
	gotID    uuid.UUID
}

func (m *mockListingRepo) ListAvailable(ctx context.Context) ([]*models.Listing, error) {
	return m.listings, m.listErr
}

func (m *mockListingRepo) GetAvailableByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	m.gotID = id
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.listing == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.listing, nil
}
