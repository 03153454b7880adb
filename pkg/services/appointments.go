package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/logging"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
	"github.com/autodirecto/autodirecto-engine/pkg/repositories"
)

// AppointmentService handles the lead-capture side: creating appointment
// records from the wizard and serving the Grid listing.
type AppointmentService interface {
	// Schedule validates and persists a new appointment record.
	Schedule(ctx context.Context, appt *models.Appointment) error

	// List returns appointments matching the given filter, ordered by
	// appointment date.
	List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)
}

type appointmentService struct {
	repo   repositories.AppointmentRepository
	logger *zap.Logger
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(repo repositories.AppointmentRepository, logger *zap.Logger) AppointmentService {
	return &appointmentService{
		repo:   repo,
		logger: logger.Named("appointments"),
	}
}

var _ AppointmentService = (*appointmentService)(nil)

// ErrMissingRequiredFields rejects wizard submissions lacking the fields
// the evaluation flow cannot proceed without.
var ErrMissingRequiredFields = fmt.Errorf("first name, last name, phone, plate and appointment date are required")

func (s *appointmentService) Schedule(ctx context.Context, appt *models.Appointment) error {
	if appt.FirstName == "" || appt.LastName == "" || appt.Phone == "" ||
		appt.Plate == "" || appt.AppointmentDate.IsZero() {
		return ErrMissingRequiredFields
	}

	appt.Plate = strings.ToUpper(appt.Plate)
	appt.FullName = appt.FirstName + " " + appt.LastName
	if appt.CountryCode == "" {
		appt.CountryCode = "+56"
	}
	appt.Status = models.StatusAgendado
	appt.Source = models.DefaultSource
	appt.Matched = false
	appt.MatchedFunnelID = nil

	if err := s.repo.Create(ctx, appt); err != nil {
		return fmt.Errorf("schedule appointment: %w", err)
	}

	s.logger.Info("Appointment scheduled",
		zap.String("id", appt.ID.String()),
		zap.String("plate", appt.Plate),
		zap.String("phone", logging.MaskPhone(appt.Phone)),
		zap.String("date", appt.AppointmentDate.Format("2006-01-02")))

	return nil
}

func (s *appointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}
