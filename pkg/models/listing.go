package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is one catalog vehicle offered for sale on the site.
type Listing struct {
	ID           uuid.UUID       `json:"id"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	Price        int64           `json:"price"`
	MileageKM    int             `json:"mileage_km"`
	FuelType     string          `json:"fuel_type"`
	Transmission string          `json:"transmission"`
	Color        string          `json:"color"`
	Description  string          `json:"description"`
	ImageURLs    []string        `json:"image_urls"`
	Features     map[string]bool `json:"features"`
	Plate        string          `json:"plate"`
	Motor        string          `json:"motor"`
	BodyType     string          `json:"body_type"`
	Doors        *int            `json:"doors,omitempty"`
	Featured     bool            `json:"featured"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Listing status values.
const (
	ListingDisponible = "disponible"
	ListingVendido    = "vendido"
	ListingPausado    = "pausado"
)
