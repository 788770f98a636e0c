package prescription

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rxtrack/rxtrack/internal/domain/inventory"
	"github.com/rxtrack/rxtrack/internal/platform/apperr"
	"github.com/rxtrack/rxtrack/internal/platform/auth"
)

// StockChecker is the slice of the inventory service the prescription
// lifecycle needs. inventory.Service satisfies it directly.
type StockChecker interface {
	CheckMedications(ctx context.Context, meds []inventory.MedicationInput) []inventory.StockCheck
	Deduct(ctx context.Context, drugID uuid.UUID, qty int) (int, error)
	Restock(ctx context.Context, drugID uuid.UUID, qty int) (int, error)
}

// Notifier delivers lifecycle notifications rendered from a registered
// template. Implementations must not return delivery failures into the
// lifecycle operation; they log and move on.
type Notifier interface {
	NotifyTemplate(ctx context.Context, ownerID uuid.UUID, templateID, category string, data map[string]string, relatedID *uuid.UUID)
}

type Service struct {
	repo     Repository
	stock    StockChecker
	notifier Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, stock StockChecker, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{repo: repo, stock: stock, notifier: notifier, log: log}
}

type CreateInput struct {
	PatientName string       `json:"patient_name"`
	PatientAge  int          `json:"patient_age"`
	Medications []Medication `json:"medications"`
	Notes       *string      `json:"notes,omitempty"`
	ExpiryDate  *time.Time   `json:"expiry_date,omitempty"`
}

// UpdateInput carries the mutable fields. Nil means leave unchanged;
// replacing medications re-runs the inventory check.
type UpdateInput struct {
	Medications []Medication `json:"medications,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	ExpiryDate  *time.Time   `json:"expiry_date,omitempty"`
}

func validateMedications(meds []Medication) error {
	if len(meds) == 0 {
		return apperr.Validation("at least one medication is required")
	}
	for i, m := range meds {
		if strings.TrimSpace(m.Name) == "" {
			return apperr.Validation("medication %d: name is required", i+1)
		}
		if strings.TrimSpace(m.Dosage) == "" {
			return apperr.Validation("medication %d: dosage is required", i+1)
		}
	}
	return nil
}

// checkStock refreshes the inventory snapshot on each medication and
// returns the aggregate availability flag.
func (s *Service) checkStock(ctx context.Context, meds []Medication) ([]Medication, bool) {
	inputs := make([]inventory.MedicationInput, len(meds))
	for i, m := range meds {
		inputs[i] = inventory.MedicationInput{
			Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency, Duration: m.Duration,
		}
	}
	checks := s.stock.CheckMedications(ctx, inputs)

	out := make([]Medication, len(meds))
	allAvailable := true
	for i, c := range checks {
		out[i] = Medication{
			Name:             c.Name,
			Dosage:           c.Dosage,
			Frequency:        c.Frequency,
			Duration:         c.Duration,
			DrugID:           c.DrugID,
			StockChecked:     c.StockChecked,
			StockAvailable:   c.StockAvailable,
			RequiredQuantity: c.RequiredQuantity,
			AvailableStock:   c.AvailableStock,
			InventoryError:   c.InventoryError,
		}
		if !c.StockChecked || !c.StockAvailable {
			allAvailable = false
		}
	}
	return out, allAvailable
}

func (s *Service) Create(ctx context.Context, ident auth.Identity, in CreateInput) (*Prescription, error) {
	if strings.TrimSpace(in.PatientName) == "" {
		return nil, apperr.Validation("patient_name is required")
	}
	if in.PatientAge < 0 {
		return nil, apperr.Validation("patient_age must not be negative")
	}
	if err := validateMedications(in.Medications); err != nil {
		return nil, err
	}

	meds, allAvailable := s.checkStock(ctx, in.Medications)

	expiry := time.Now().AddDate(0, 0, DefaultValidityDays)
	if in.ExpiryDate != nil {
		expiry = *in.ExpiryDate
	}

	p := &Prescription{
		Owner:                   ident.ID,
		PatientName:             in.PatientName,
		PatientAge:              in.PatientAge,
		Medications:             meds,
		Notes:                   in.Notes,
		Status:                  StatusUnvalidated,
		AllMedicationsAvailable: allAvailable,
		ExpiryDate:              expiry,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Persistence("create prescription", err)
	}

	s.notify(ctx, p, "prescription-created")
	return p, nil
}

func (s *Service) notify(ctx context.Context, p *Prescription, templateID string) {
	s.notifier.NotifyTemplate(ctx, p.Owner, templateID, "prescription", map[string]string{
		"patient_name":     p.PatientName,
		"medication_count": strconv.Itoa(len(p.Medications)),
	}, &p.ID)
}

func (s *Service) List(ctx context.Context, ident auth.Identity, status *Status, limit, offset int) ([]*Prescription, int, error) {
	filter := ListFilter{Status: status}
	if !ident.Elevated() {
		owner := ident.ID
		filter.Owner = &owner
	}
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list prescriptions", err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, ident auth.Identity, id uuid.UUID) (*Prescription, error) {
	return s.authorized(ctx, ident, id)
}

// authorized loads a prescription and enforces the owner-or-elevated rule.
// Every mutating operation goes through it before touching state.
func (s *Service) authorized(ctx context.Context, ident auth.Identity, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("prescription not found")
	}
	if err != nil {
		return nil, apperr.Persistence("get prescription", err)
	}
	if p.Owner != ident.ID && !ident.Elevated() {
		return nil, apperr.Authorization("not permitted to access this prescription")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, ident auth.Identity, id uuid.UUID, in UpdateInput) (*Prescription, error) {
	p, err := s.authorized(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusDispensed || p.Status == StatusCancelled {
		return nil, apperr.Conflict("cannot update a %s prescription", p.Status)
	}

	if in.Medications != nil {
		if err := validateMedications(in.Medications); err != nil {
			return nil, err
		}
		p.Medications, p.AllMedicationsAvailable = s.checkStock(ctx, in.Medications)
	}
	if in.Notes != nil {
		p.Notes = in.Notes
	}
	if in.ExpiryDate != nil {
		p.ExpiryDate = *in.ExpiryDate
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Persistence("update prescription", err)
	}

	s.notify(ctx, p, "prescription-updated")
	return p, nil
}

// availabilityGuard rejects a prescription whose snapshot marks any
// medication unavailable. Validate and Dispense both apply it; dispense
// re-checks because an update while validated may have replaced the
// medications with an insufficient snapshot.
func availabilityGuard(p *Prescription) error {
	missing := p.UnavailableMedications()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, m := range missing {
		if m.InventoryError != "" {
			names[i] = m.InventoryError
		} else {
			names[i] = m.Name
		}
	}
	return apperr.Conflict("medications unavailable: %s", strings.Join(names, "; "))
}

func (s *Service) Validate(ctx context.Context, ident auth.Identity, id uuid.UUID) (*Prescription, error) {
	p, err := s.authorized(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusUnvalidated {
		return nil, apperr.Conflict("cannot validate a %s prescription", p.Status)
	}
	if err := availabilityGuard(p); err != nil {
		return nil, err
	}

	now := time.Now()
	p.Status = StatusValidated
	p.ValidatedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Persistence("validate prescription", err)
	}

	s.notify(ctx, p, "prescription-validated")
	return p, nil
}

// Dispense deducts stock for each medication in declared order and flips
// the status last. If any deduction fails, the ones already applied are
// rolled back with compensating restocks and the prescription is left
// untouched.
func (s *Service) Dispense(ctx context.Context, ident auth.Identity, id uuid.UUID) (*Prescription, []inventory.DeductionResult, error) {
	p, err := s.authorized(ctx, ident, id)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != StatusValidated {
		return nil, nil, apperr.Conflict("cannot dispense a %s prescription", p.Status)
	}
	if p.Expired(time.Now()) {
		return nil, nil, apperr.Conflict("prescription expired on %s", p.ExpiryDate.Format("2006-01-02"))
	}
	if err := availabilityGuard(p); err != nil {
		return nil, nil, err
	}
	for _, m := range p.Medications {
		if m.DrugID == nil {
			return nil, nil, apperr.Conflict("medication %q is not linked to a stocked drug", m.Name)
		}
	}

	type applied struct {
		drugID uuid.UUID
		qty    int
	}
	var done []applied
	results := make([]inventory.DeductionResult, 0, len(p.Medications))

	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if _, err := s.stock.Restock(ctx, done[i].drugID, done[i].qty); err != nil {
				s.log.Error().Err(err).
					Str("prescription_id", p.ID.String()).
					Str("drug_id", done[i].drugID.String()).
					Int("quantity", done[i].qty).
					Msg("compensating restock failed")
			}
		}
	}

	for _, m := range p.Medications {
		qty := m.RequiredQuantity
		if qty <= 0 {
			qty = 1
		}
		remaining, err := s.stock.Deduct(ctx, *m.DrugID, qty)
		if err != nil {
			rollback()
			return nil, nil, apperr.Conflict("dispense failed at %q: %v", m.Name, err)
		}
		done = append(done, applied{drugID: *m.DrugID, qty: qty})
		results = append(results, inventory.DeductionResult{
			Name:           m.Name,
			Success:        true,
			RemainingStock: remaining,
		})
	}

	now := time.Now()
	p.Status = StatusDispensed
	p.DispensedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		rollback()
		return nil, nil, apperr.Persistence("dispense prescription", err)
	}

	s.notify(ctx, p, "prescription-dispensed")
	return p, results, nil
}

func (s *Service) Cancel(ctx context.Context, ident auth.Identity, id uuid.UUID) (*Prescription, error) {
	p, err := s.authorized(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusDispensed || p.Status == StatusCancelled {
		return nil, apperr.Conflict("cannot cancel a %s prescription", p.Status)
	}

	now := time.Now()
	p.Status = StatusCancelled
	p.CancelledAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Persistence("cancel prescription", err)
	}

	s.notify(ctx, p, "prescription-cancelled")
	return p, nil
}

func (s *Service) Delete(ctx context.Context, ident auth.Identity, id uuid.UUID) error {
	p, err := s.authorized(ctx, ident, id)
	if err != nil {
		return err
	}
	if p.Status != StatusUnvalidated {
		return apperr.Conflict("only unvalidated prescriptions can be deleted")
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return apperr.Persistence("delete prescription", err)
	}
	return nil
}
