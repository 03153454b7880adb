package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/database"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
)

// ListingRepository provides read access to the catalog.
type ListingRepository interface {
	// ListAvailable returns all listings with status 'disponible',
	// newest first.
	ListAvailable(ctx context.Context) ([]*models.Listing, error)

	// GetAvailableByID returns a single available listing.
	GetAvailableByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type listingRepository struct {
	db *database.DB
}

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(db *database.DB) ListingRepository {
	return &listingRepository{db: db}
}

var _ ListingRepository = (*listingRepository)(nil)

const listingColumns = `
	id, brand, model, year, price, mileage_km, fuel_type, transmission,
	color, description, image_urls, features, plate, motor, body_type,
	doors, featured, status, created_at`

func (r *listingRepository) ListAvailable(ctx context.Context) ([]*models.Listing, error) {
	query := `
		SELECT` + listingColumns + `
		FROM listings
		WHERE status = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, models.ListingDisponible)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}

	return listings, nil
}

func (r *listingRepository) GetAvailableByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT` + listingColumns + ` FROM listings WHERE id = $1 AND status = $2`

	listing, err := scanListing(r.db.QueryRow(ctx, query, id, models.ListingDisponible))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var listing models.Listing
	err := row.Scan(
		&listing.ID,
		&listing.Brand,
		&listing.Model,
		&listing.Year,
		&listing.Price,
		&listing.MileageKM,
		&listing.FuelType,
		&listing.Transmission,
		&listing.Color,
		&listing.Description,
		&listing.ImageURLs,
		&listing.Features,
		&listing.Plate,
		&listing.Motor,
		&listing.BodyType,
		&listing.Doors,
		&listing.Featured,
		&listing.Status,
		&listing.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
