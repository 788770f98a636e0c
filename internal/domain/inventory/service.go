package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rxtrack/rxtrack/internal/platform/apperr"
	"github.com/rxtrack/rxtrack/internal/platform/auth"
)

// MedicationInput is the caller-facing shape of one prescribed medication
// line, before any stock information has been attached.
type MedicationInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type Service struct {
	repo DrugRepository
}

func NewService(repo DrugRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateDrug(ctx context.Context, ident auth.Identity, d *Drug) error {
	if strings.TrimSpace(d.MedicineName) == "" {
		return apperr.Validation("medicine_name is required")
	}
	if strings.TrimSpace(d.MedicineID) == "" {
		return apperr.Validation("medicine_id is required")
	}
	if d.Stock < 0 {
		return apperr.Validation("stock must not be negative")
	}
	d.CreatedBy = ident.ID
	if err := s.repo.Create(ctx, d); err != nil {
		return apperr.Persistence("create drug", err)
	}
	return nil
}

func (s *Service) GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("drug not found")
	}
	if err != nil {
		return nil, apperr.Persistence("get drug", err)
	}
	return d, nil
}

// GetDrugByMedicineID looks a drug up by its business key.
func (s *Service) GetDrugByMedicineID(ctx context.Context, medicineID string) (*Drug, error) {
	if strings.TrimSpace(medicineID) == "" {
		return nil, apperr.Validation("medicine_id is required")
	}
	d, err := s.repo.GetByMedicineID(ctx, medicineID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("drug %s not found", medicineID)
	}
	if err != nil {
		return nil, apperr.Persistence("get drug by medicine id", err)
	}
	return d, nil
}

func (s *Service) UpdateDrug(ctx context.Context, id uuid.UUID, d *Drug) (*Drug, error) {
	if strings.TrimSpace(d.MedicineName) == "" {
		return nil, apperr.Validation("medicine_name is required")
	}
	if d.Stock < 0 {
		return nil, apperr.Validation("stock must not be negative")
	}
	existing, err := s.GetDrug(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.MedicineID = d.MedicineID
	existing.MedicineName = d.MedicineName
	existing.GroupName = d.GroupName
	existing.Stock = d.Stock
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("drug not found")
		}
		return nil, apperr.Persistence("update drug", err)
	}
	return existing, nil
}

func (s *Service) DeleteDrug(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("drug not found")
	}
	if err != nil {
		return apperr.Persistence("delete drug", err)
	}
	return nil
}

func (s *Service) ListDrugs(ctx context.Context, nameFilter string, limit, offset int) ([]*Drug, int, error) {
	drugs, total, err := s.repo.List(ctx, nameFilter, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list drugs", err)
	}
	return drugs, total, nil
}

// CheckAvailability resolves a medication name against the catalog and
// reports whether the quantity implied by its dosage can be covered.
// Lookup and stock failures are folded into the result rather than
// returned: a prescription with one unknown medication must still get a
// complete per-medication report.
func (s *Service) CheckAvailability(ctx context.Context, name, dosage string) StockCheck {
	check := StockCheck{
		Name:             name,
		Dosage:           dosage,
		StockChecked:     true,
		RequiredQuantity: ExtractQuantity(dosage),
	}

	drug, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		check.InventoryError = fmt.Sprintf("no matching drug found for %q", name)
		return check
	}
	if err != nil {
		check.StockChecked = false
		check.InventoryError = "inventory lookup failed"
		return check
	}

	check.DrugID = &drug.ID
	check.AvailableStock = drug.Stock
	if drug.Stock >= check.RequiredQuantity {
		check.StockAvailable = true
	} else {
		check.InventoryError = fmt.Sprintf("insufficient stock for %q: required %d, available %d",
			name, check.RequiredQuantity, drug.Stock)
	}
	return check
}

// CheckMedications runs CheckAvailability over a batch, preserving input
// order. One failing entry never aborts the rest.
func (s *Service) CheckMedications(ctx context.Context, meds []MedicationInput) []StockCheck {
	checks := make([]StockCheck, 0, len(meds))
	for _, m := range meds {
		check := s.CheckAvailability(ctx, m.Name, m.Dosage)
		check.Frequency = m.Frequency
		check.Duration = m.Duration
		checks = append(checks, check)
	}
	return checks
}

// Deduct atomically removes qty units of stock. The decrement is
// conditional on sufficient stock, so concurrent dispenses can never
// drive the count negative.
func (s *Service) Deduct(ctx context.Context, drugID uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, apperr.Validation("deduction quantity must be positive")
	}
	remaining, err := s.repo.DeductStock(ctx, drugID, qty)
	if errors.Is(err, ErrInsufficientStock) {
		return 0, apperr.Conflict("insufficient stock")
	}
	if err != nil {
		return 0, apperr.Persistence("deduct stock", err)
	}
	return remaining, nil
}

// Restock adds qty units back. Used as the compensation step when a
// multi-medication dispense fails partway through.
func (s *Service) Restock(ctx context.Context, drugID uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, apperr.Validation("restock quantity must be positive")
	}
	remaining, err := s.repo.AddStock(ctx, drugID, qty)
	if errors.Is(err, ErrNotFound) {
		return 0, apperr.NotFound("drug not found")
	}
	if err != nil {
		return 0, apperr.Persistence("restock", err)
	}
	return remaining, nil
}
