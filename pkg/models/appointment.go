package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Appointment represents one scheduled vehicle evaluation created by the
// lead-capture wizard. Contact and vehicle fields are immutable after
// creation; only Matched, MatchedFunnelID and Status change afterwards,
// and only through the matcher.
type Appointment struct {
	ID uuid.UUID `json:"id"`

	// Contact
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	FullName    string  `json:"full_name"`
	RUT         *string `json:"rut,omitempty"`
	CountryCode string  `json:"country_code"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email,omitempty"`
	Region      *string `json:"region,omitempty"`
	Commune     *string `json:"commune,omitempty"`
	Address     *string `json:"address,omitempty"`

	// Vehicle, from plate lookup or manual entry
	Plate    string  `json:"plate"`
	Mileage  *int    `json:"mileage,omitempty"`
	Version  *string `json:"version,omitempty"`
	CarMake  *string `json:"car_make,omitempty"`
	CarModel *string `json:"car_model,omitempty"`
	CarYear  *int    `json:"car_year,omitempty"`

	// Scheduling
	AppointmentDate time.Time `json:"appointment_date"`
	AppointmentTime *string   `json:"appointment_time,omitempty"`

	// Lifecycle / matching
	Status          string  `json:"status"`
	Source          string  `json:"source"`
	Matched         bool    `json:"matched"`
	MatchedFunnelID *string `json:"matched_funnel_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Appointment status values.
const (
	StatusAgendado   = "agendado"
	StatusConfirmado = "confirmado"
	StatusCompletado = "completado"
	StatusCancelado  = "cancelado"
)

// DefaultSource marks records created by this site's own capture flow.
const DefaultSource = "autodirecto"

// Plausible model-year bounds for appointment records.
const minCarYear = 1950

// Validate checks the record invariants at the datastore boundary.
func (a *Appointment) Validate() error {
	if a.Matched && (a.MatchedFunnelID == nil || *a.MatchedFunnelID == "") {
		return fmt.Errorf("matched appointment must carry a funnel id")
	}
	if a.Mileage != nil && *a.Mileage < 0 {
		return fmt.Errorf("mileage must be non-negative, got %d", *a.Mileage)
	}
	if a.CarYear != nil {
		maxYear := time.Now().Year() + 1
		if *a.CarYear < minCarYear || *a.CarYear > maxYear {
			return fmt.Errorf("car year %d outside plausible range %d-%d", *a.CarYear, minCarYear, maxYear)
		}
	}
	return nil
}

// AppointmentFilter narrows the Grid listing query. Zero values mean
// "no filter". Mileage filters with a ±5000 km tolerance, the same
// window the mileage_range match signal uses.
type AppointmentFilter struct {
	Status   string
	Plate    string
	CarMake  string
	CarModel string
	Name     string
	Mileage  *int
	DateFrom string
	DateTo   string
}

// MileageTolerance is the ± window applied by the mileage filter.
const MileageTolerance = 5000
