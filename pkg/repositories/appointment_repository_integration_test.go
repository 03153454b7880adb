//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
	"github.com/autodirecto/autodirecto-engine/pkg/testhelpers"
)

func newTestAppointment() *models.Appointment {
	mileage := 45000
	year := 2019
	carMake := "Toyota"
	carModel := "Corolla"
	return &models.Appointment{
		FirstName:       "María",
		LastName:        "González",
		FullName:        "María González",
		CountryCode:     "+56",
		Phone:           "+56 9 1234 5678",
		Plate:           "ABCD12",
		Mileage:         &mileage,
		CarMake:         &carMake,
		CarModel:        &carModel,
		CarYear:         &year,
		AppointmentDate: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		Status:          models.StatusAgendado,
		Source:          models.DefaultSource,
	}
}

func TestAppointmentCreateAndGet(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	appt := newTestAppointment()
	require.NoError(t, repo.Create(ctx, appt))
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.False(t, appt.CreatedAt.IsZero())

	fetched, err := repo.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "María González", fetched.FullName)
	assert.Equal(t, "ABCD12", fetched.Plate)
	require.NotNil(t, fetched.Mileage)
	assert.Equal(t, 45000, *fetched.Mileage)
	assert.False(t, fetched.Matched)
	assert.Nil(t, fetched.MatchedFunnelID)
}

func TestAppointmentGetByIDNotFound(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	repo := NewAppointmentRepository(tdb.DB)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAppointmentCreateRejectsInvalidRecord(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	repo := NewAppointmentRepository(tdb.DB)

	appt := newTestAppointment()
	appt.Matched = true // without a funnel id
	assert.Error(t, repo.Create(context.Background(), appt))
}

func TestFindByPhoneSuffixNormalizesStoredPhones(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	// Stored with spaces and country prefix; looked up by bare suffix.
	appt := newTestAppointment()
	require.NoError(t, repo.Create(ctx, appt))

	other := newTestAppointment()
	other.Phone = "+56 9 8765 4321"
	require.NoError(t, repo.Create(ctx, other))

	found, err := repo.FindByPhoneSuffix(ctx, models.PhoneSuffix("912345678"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, appt.ID, found[0].ID)
}

func TestFindByPhoneSuffixNewestFirst(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	first := newTestAppointment()
	require.NoError(t, repo.Create(ctx, first))
	second := newTestAppointment()
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.FindByPhoneSuffix(ctx, models.PhoneSuffix("912345678"))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.False(t, found[0].CreatedAt.Before(found[1].CreatedAt))
}

func TestFindUnmatchedByCarFilters(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	toyota := newTestAppointment()
	require.NoError(t, repo.Create(ctx, toyota))

	mazda := newTestAppointment()
	mazdaMake, mazdaModel := "Mazda", "3"
	mazda.CarMake, mazda.CarModel = &mazdaMake, &mazdaModel
	require.NoError(t, repo.Create(ctx, mazda))

	linked := newTestAppointment()
	require.NoError(t, repo.Create(ctx, linked))
	require.NoError(t, repo.LinkFunnelLead(ctx, linked.ID, "lead-1"))

	// Case-insensitive substring on make; linked records excluded.
	found, err := repo.FindUnmatchedByCar(ctx, "toyo", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, toyota.ID, found[0].ID)

	// Empty terms return every unmatched record.
	found, err = repo.FindUnmatchedByCar(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestFindUnmatchedByName(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	appt := newTestAppointment()
	require.NoError(t, repo.Create(ctx, appt))

	found, err := repo.FindUnmatchedByName(ctx, "gonzález")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, appt.ID, found[0].ID)

	found, err = repo.FindUnmatchedByName(ctx, "pérez")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLinkFunnelLeadRoundTrip(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	appt := newTestAppointment()
	require.NoError(t, repo.Create(ctx, appt))

	require.NoError(t, repo.LinkFunnelLead(ctx, appt.ID, "lead-42"))

	fetched, err := repo.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Matched)
	require.NotNil(t, fetched.MatchedFunnelID)
	assert.Equal(t, "lead-42", *fetched.MatchedFunnelID)
	assert.Equal(t, models.StatusAgendado, fetched.Status)

	// Re-linking overwrites: last write wins.
	require.NoError(t, repo.LinkFunnelLead(ctx, appt.ID, "lead-43"))
	fetched, err = repo.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "lead-43", *fetched.MatchedFunnelID)
}

func TestLinkFunnelLeadMissingRecord(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	repo := NewAppointmentRepository(tdb.DB)

	err := repo.LinkFunnelLead(context.Background(), uuid.New(), "lead-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	repo := NewAppointmentRepository(tdb.DB)
	ctx := context.Background()

	early := newTestAppointment()
	early.AppointmentDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, early))

	late := newTestAppointment()
	late.Plate = "WXYZ89"
	lateMileage := 90000
	late.Mileage = &lateMileage
	late.AppointmentDate = time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, late))

	// No filter: everything, earliest appointment first.
	all, err := repo.List(ctx, models.AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ID)

	// Plate is uppercased before comparison.
	byPlate, err := repo.List(ctx, models.AppointmentFilter{Plate: "wxyz89"})
	require.NoError(t, err)
	require.Len(t, byPlate, 1)
	assert.Equal(t, late.ID, byPlate[0].ID)

	// Mileage window is ±5000 km.
	window := 47000
	byMileage, err := repo.List(ctx, models.AppointmentFilter{Mileage: &window})
	require.NoError(t, err)
	require.Len(t, byMileage, 1)
	assert.Equal(t, early.ID, byMileage[0].ID)

	// Date range.
	ranged, err := repo.List(ctx, models.AppointmentFilter{DateFrom: "2026-09-10", DateTo: "2026-09-30"})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, late.ID, ranged[0].ID)

	// Name substring, case-insensitive.
	byName, err := repo.List(ctx, models.AppointmentFilter{Name: "maría"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)
}
