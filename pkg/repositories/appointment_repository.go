package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/database"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
)

// AppointmentRepository provides data access for appointment records.
//
// The three Find* methods are the candidate-retrieval primitives used by
// the matcher's strategy cascade; each returns a bounded, newest-first
// slice and never merges with the others.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)

	FindByPhoneSuffix(ctx context.Context, suffix string) ([]*models.Appointment, error)
	FindUnmatchedByCar(ctx context.Context, carMake, carModel string) ([]*models.Appointment, error)
	FindUnmatchedByName(ctx context.Context, name string) ([]*models.Appointment, error)

	LinkFunnelLead(ctx context.Context, id uuid.UUID, funnelLeadID string) error
}

type appointmentRepository struct {
	db *database.DB
}

// NewAppointmentRepository creates a new AppointmentRepository.
func NewAppointmentRepository(db *database.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

var _ AppointmentRepository = (*appointmentRepository)(nil)

const appointmentColumns = `
	id, first_name, last_name, full_name, rut, country_code, phone, email,
	region, commune, address, plate, mileage, version, car_make, car_model,
	car_year, appointment_date, appointment_time, status, source, matched,
	matched_funnel_id, created_at`

func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if err := appt.Validate(); err != nil {
		return fmt.Errorf("invalid appointment: %w", err)
	}

	query := `
		INSERT INTO appointments (
			first_name, last_name, full_name, rut, country_code, phone, email,
			region, commune, address, plate, mileage, version, car_make,
			car_model, car_year, appointment_date, appointment_time, status,
			source, matched, matched_funnel_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id, created_at`

	now := time.Now().UTC()

	err := r.db.QueryRow(ctx, query,
		appt.FirstName,
		appt.LastName,
		appt.FullName,
		appt.RUT,
		appt.CountryCode,
		appt.Phone,
		appt.Email,
		appt.Region,
		appt.Commune,
		appt.Address,
		appt.Plate,
		appt.Mileage,
		appt.Version,
		appt.CarMake,
		appt.CarModel,
		appt.CarYear,
		appt.AppointmentDate,
		appt.AppointmentTime,
		appt.Status,
		appt.Source,
		appt.Matched,
		appt.MatchedFunnelID,
		now,
	).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return appt, nil
}

// List runs the Grid view query: equality and substring filters,
// mileage within ±5000 km, date range, ordered by appointment date.
func (r *appointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(filter.Status))
	}
	if filter.Plate != "" {
		conditions = append(conditions, "plate = "+arg(strings.ToUpper(filter.Plate)))
	}
	if filter.CarMake != "" {
		conditions = append(conditions, "car_make ILIKE '%' || "+arg(filter.CarMake)+" || '%'")
	}
	if filter.CarModel != "" {
		conditions = append(conditions, "car_model ILIKE '%' || "+arg(filter.CarModel)+" || '%'")
	}
	if filter.Name != "" {
		conditions = append(conditions, "full_name ILIKE '%' || "+arg(filter.Name)+" || '%'")
	}
	if filter.Mileage != nil {
		conditions = append(conditions, "mileage >= "+arg(*filter.Mileage-models.MileageTolerance))
		conditions = append(conditions, "mileage <= "+arg(*filter.Mileage+models.MileageTolerance))
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "appointment_date >= "+arg(filter.DateFrom))
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "appointment_date <= "+arg(filter.DateTo))
	}

	query := `SELECT` + appointmentColumns + ` FROM appointments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY appointment_date ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// FindByPhoneSuffix matches the normalized trailing digits of the stored
// phone against the given suffix. Phones are normalized in SQL the same
// way models.NormalizePhone does in Go: spaces, hyphens and plus signs
// removed.
func (r *appointmentRepository) FindByPhoneSuffix(ctx context.Context, suffix string) ([]*models.Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE translate(phone, ' -+', '') ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT 10`

	rows, err := r.db.Query(ctx, query, suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments by phone: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// FindUnmatchedByCar returns unmatched records whose make and/or model
// contain the supplied terms, case-insensitively. An empty term skips
// that filter.
func (r *appointmentRepository) FindUnmatchedByCar(ctx context.Context, carMake, carModel string) ([]*models.Appointment, error) {
	conditions := []string{"matched = false"}
	var args []any

	if carMake != "" {
		args = append(args, carMake)
		conditions = append(conditions, fmt.Sprintf("car_make ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if carModel != "" {
		args = append(args, carModel)
		conditions = append(conditions, fmt.Sprintf("car_model ILIKE '%%' || $%d || '%%'", len(args)))
	}

	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC
		LIMIT 20`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments by car: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *appointmentRepository) FindUnmatchedByName(ctx context.Context, name string) ([]*models.Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE matched = false
		  AND full_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT 10`

	rows, err := r.db.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments by name: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// LinkFunnelLead marks the record matched and stores the funnel lead id.
// Re-linking an already matched record overwrites the previous funnel id;
// last write wins.
func (r *appointmentRepository) LinkFunnelLead(ctx context.Context, id uuid.UUID, funnelLeadID string) error {
	query := `
		UPDATE appointments
		SET matched = true, matched_funnel_id = $2, status = $3
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, funnelLeadID, models.StatusAgendado)
	if err != nil {
		return fmt.Errorf("failed to link funnel lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var appt models.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.FirstName,
		&appt.LastName,
		&appt.FullName,
		&appt.RUT,
		&appt.CountryCode,
		&appt.Phone,
		&appt.Email,
		&appt.Region,
		&appt.Commune,
		&appt.Address,
		&appt.Plate,
		&appt.Mileage,
		&appt.Version,
		&appt.CarMake,
		&appt.CarModel,
		&appt.CarYear,
		&appt.AppointmentDate,
		&appt.AppointmentTime,
		&appt.Status,
		&appt.Source,
		&appt.Matched,
		&appt.MatchedFunnelID,
		&appt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]*models.Appointment, error) {
	var appointments []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return appointments, nil
}
