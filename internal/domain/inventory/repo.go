package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no drug matches the given key.
var ErrNotFound = errors.New("drug not found")

// ErrInsufficientStock is returned by DeductStock when the conditional
// decrement touches no rows: the drug's stock is below the requested
// quantity (or the drug vanished since it was resolved).
var ErrInsufficientStock = errors.New("insufficient stock")

type DrugRepository interface {
	Create(ctx context.Context, d *Drug) error
	GetByID(ctx context.Context, id uuid.UUID) (*Drug, error)
	GetByMedicineID(ctx context.Context, medicineID string) (*Drug, error)
	Update(ctx context.Context, d *Drug) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, nameFilter string, limit, offset int) ([]*Drug, int, error)

	// FindByName resolves a free-text medication name to a drug whose
	// medicine_name contains it, case-insensitively. Oldest match wins.
	FindByName(ctx context.Context, name string) (*Drug, error)

	// DeductStock atomically subtracts qty where stock >= qty and returns
	// the remaining stock. Returns ErrInsufficientStock when the guard
	// rejects the decrement.
	DeductStock(ctx context.Context, id uuid.UUID, qty int) (int, error)

	// AddStock atomically adds qty back and returns the new stock. Used by
	// the dispense compensation path.
	AddStock(ctx context.Context, id uuid.UUID, qty int) (int, error)
}
