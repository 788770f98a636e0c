package prescription

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rxtrack/rxtrack/internal/domain/inventory"
	"github.com/rxtrack/rxtrack/internal/platform/apperr"
	"github.com/rxtrack/rxtrack/internal/platform/auth"
)

// mockRepo is an in-memory prescription Repository.
type mockRepo struct {
	items map[uuid.UUID]*Prescription
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Prescription)}
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Prescription) error {
	if _, ok := m.items[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	m.items[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	var all []*Prescription
	for _, p := range m.items {
		if filter.Owner != nil && p.Owner != *filter.Owner {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

// mockStock is an in-memory StockChecker keyed by drug name.
type mockStock struct {
	stock    map[string]int
	ids      map[string]uuid.UUID
	byID     map[uuid.UUID]string
	deducts  int
	restocks int
	// failAt, when set, makes Deduct fail for the named drug regardless
	// of stock level.
	failAt string
}

func newMockStock(levels map[string]int) *mockStock {
	s := &mockStock{
		stock: make(map[string]int),
		ids:   make(map[string]uuid.UUID),
		byID:  make(map[uuid.UUID]string),
	}
	for name, qty := range levels {
		id := uuid.New()
		s.stock[name] = qty
		s.ids[name] = id
		s.byID[id] = name
	}
	return s
}

func (s *mockStock) CheckMedications(_ context.Context, meds []inventory.MedicationInput) []inventory.StockCheck {
	checks := make([]inventory.StockCheck, 0, len(meds))
	for _, m := range meds {
		check := inventory.StockCheck{
			Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency, Duration: m.Duration,
			StockChecked:     true,
			RequiredQuantity: inventory.ExtractQuantity(m.Dosage),
		}
		if id, ok := s.ids[m.Name]; ok {
			idCopy := id
			check.DrugID = &idCopy
			check.AvailableStock = s.stock[m.Name]
			if check.AvailableStock >= check.RequiredQuantity {
				check.StockAvailable = true
			} else {
				check.InventoryError = "insufficient stock"
			}
		} else {
			check.InventoryError = "no matching drug found"
		}
		checks = append(checks, check)
	}
	return checks
}

func (s *mockStock) Deduct(_ context.Context, drugID uuid.UUID, qty int) (int, error) {
	name, ok := s.byID[drugID]
	if !ok {
		return 0, apperr.Conflict("unknown drug")
	}
	if name == s.failAt || s.stock[name] < qty {
		return 0, apperr.Conflict("insufficient stock")
	}
	s.deducts++
	s.stock[name] -= qty
	return s.stock[name], nil
}

func (s *mockStock) Restock(_ context.Context, drugID uuid.UUID, qty int) (int, error) {
	name, ok := s.byID[drugID]
	if !ok {
		return 0, apperr.NotFound("unknown drug")
	}
	s.restocks++
	s.stock[name] += qty
	return s.stock[name], nil
}

func (s *mockStock) totalStock() int {
	total := 0
	for _, qty := range s.stock {
		total += qty
	}
	return total
}

// mockNotifier records the template IDs of emitted notifications.
type mockNotifier struct {
	events []string
}

func (n *mockNotifier) NotifyTemplate(_ context.Context, _ uuid.UUID, templateID, _ string, _ map[string]string, _ *uuid.UUID) {
	n.events = append(n.events, templateID)
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	stock    *mockStock
	notifier *mockNotifier
}

func newFixture(levels map[string]int) *fixture {
	repo := newMockRepo()
	stock := newMockStock(levels)
	notifier := &mockNotifier{}
	return &fixture{
		svc:      NewService(repo, stock, notifier, zerolog.Nop()),
		repo:     repo,
		stock:    stock,
		notifier: notifier,
	}
}

func doctor() auth.Identity {
	return auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}
}

func pharmacist() auth.Identity {
	return auth.Identity{ID: uuid.New(), Role: auth.RolePharmacist}
}

func createPrescription(t *testing.T, f *fixture, ident auth.Identity, meds ...Medication) *Prescription {
	t.Helper()
	p, err := f.svc.Create(context.Background(), ident, CreateInput{
		PatientName: "Jane Doe",
		PatientAge:  34,
		Medications: meds,
	})
	if err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	return p
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(nil)
	ident := doctor()
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing patient name", CreateInput{PatientAge: 30, Medications: []Medication{{Name: "Aspirin", Dosage: "1 tablet"}}}},
		{"negative age", CreateInput{PatientName: "Jane", PatientAge: -1, Medications: []Medication{{Name: "Aspirin", Dosage: "1 tablet"}}}},
		{"no medications", CreateInput{PatientName: "Jane", PatientAge: 30}},
		{"medication without name", CreateInput{PatientName: "Jane", PatientAge: 30, Medications: []Medication{{Dosage: "1 tablet"}}}},
		{"medication without dosage", CreateInput{PatientName: "Jane", PatientAge: 30, Medications: []Medication{{Name: "Aspirin"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), ident, tt.in)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if len(f.repo.items) != 0 {
		t.Errorf("rejected creates must not persist anything, found %d", len(f.repo.items))
	}
}

func TestCreate_SnapshotsAndDefaults(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 100, "Metformin": 2})
	p := createPrescription(t, f, doctor(),
		Medication{Name: "Aspirin", Dosage: "2 tablets"},
		Medication{Name: "Metformin", Dosage: "5 tablets"},
	)

	if p.Status != StatusUnvalidated {
		t.Errorf("expected status unvalidated, got %s", p.Status)
	}
	if p.AllMedicationsAvailable {
		t.Error("expected aggregate flag false when one medication is short")
	}
	if !p.Medications[0].StockAvailable {
		t.Error("Aspirin should be available")
	}
	if p.Medications[1].StockAvailable || p.Medications[1].InventoryError == "" {
		t.Errorf("Metformin should be short with an error, got %+v", p.Medications[1])
	}

	wantExpiry := time.Now().AddDate(0, 0, DefaultValidityDays)
	if diff := p.ExpiryDate.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expected default expiry ~30 days out, got %s", p.ExpiryDate)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0] != "prescription-created" {
		t.Errorf("expected created notification, got %v", f.notifier.events)
	}
}

func TestCreate_DoesNotDeductStock(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	createPrescription(t, f, doctor(), Medication{Name: "Aspirin", Dosage: "2 tablets"})
	if f.stock.stock["Aspirin"] != 10 {
		t.Errorf("create must not touch stock, got %d", f.stock.stock["Aspirin"])
	}
}

func TestValidate_HappyPath(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	ident := doctor()
	p := createPrescription(t, f, ident, Medication{Name: "Aspirin", Dosage: "2 tablets"})

	validated, err := f.svc.Validate(context.Background(), ident, p.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Status != StatusValidated {
		t.Errorf("expected status validated, got %s", validated.Status)
	}
	if validated.ValidatedAt == nil {
		t.Error("expected ValidatedAt to be set")
	}
}

func TestValidate_BlockedByUnavailableMedication(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 1})
	ident := doctor()
	p := createPrescription(t, f, ident,
		Medication{Name: "Aspirin", Dosage: "5 tablets"},
		Medication{Name: "Unobtainium", Dosage: "1 tablet"},
	)

	_, err := f.svc.Validate(context.Background(), ident, p.ID)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient stock") || !strings.Contains(err.Error(), "no matching drug") {
		t.Errorf("error should name each offending medication, got %q", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	if stored.Status != StatusUnvalidated {
		t.Errorf("rejected validate must not change status, got %s", stored.Status)
	}
}

func TestStateMachine_Rejections(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 100})
	ident := doctor()

	advance := func(t *testing.T, target Status) *Prescription {
		t.Helper()
		p := createPrescription(t, f, ident, Medication{Name: "Aspirin", Dosage: "1 tablet"})
		ctx := context.Background()
		switch target {
		case StatusValidated:
			if _, err := f.svc.Validate(ctx, ident, p.ID); err != nil {
				t.Fatalf("advance to validated: %v", err)
			}
		case StatusDispensed:
			if _, err := f.svc.Validate(ctx, ident, p.ID); err != nil {
				t.Fatalf("advance to validated: %v", err)
			}
			if _, _, err := f.svc.Dispense(ctx, ident, p.ID); err != nil {
				t.Fatalf("advance to dispensed: %v", err)
			}
		case StatusCancelled:
			if _, err := f.svc.Cancel(ctx, ident, p.ID); err != nil {
				t.Fatalf("advance to cancelled: %v", err)
			}
		}
		return p
	}

	tests := []struct {
		name string
		from Status
		op   func(id uuid.UUID) error
	}{
		{"validate validated", StatusValidated, func(id uuid.UUID) error {
			_, err := f.svc.Validate(context.Background(), ident, id)
			return err
		}},
		{"validate dispensed", StatusDispensed, func(id uuid.UUID) error {
			_, err := f.svc.Validate(context.Background(), ident, id)
			return err
		}},
		{"validate cancelled", StatusCancelled, func(id uuid.UUID) error {
			_, err := f.svc.Validate(context.Background(), ident, id)
			return err
		}},
		{"dispense unvalidated", StatusUnvalidated, func(id uuid.UUID) error {
			_, _, err := f.svc.Dispense(context.Background(), ident, id)
			return err
		}},
		{"dispense dispensed", StatusDispensed, func(id uuid.UUID) error {
			_, _, err := f.svc.Dispense(context.Background(), ident, id)
			return err
		}},
		{"dispense cancelled", StatusCancelled, func(id uuid.UUID) error {
			_, _, err := f.svc.Dispense(context.Background(), ident, id)
			return err
		}},
		{"cancel dispensed", StatusDispensed, func(id uuid.UUID) error {
			_, err := f.svc.Cancel(context.Background(), ident, id)
			return err
		}},
		{"cancel cancelled", StatusCancelled, func(id uuid.UUID) error {
			_, err := f.svc.Cancel(context.Background(), ident, id)
			return err
		}},
		{"update dispensed", StatusDispensed, func(id uuid.UUID) error {
			notes := "late edit"
			_, err := f.svc.Update(context.Background(), ident, id, UpdateInput{Notes: &notes})
			return err
		}},
		{"update cancelled", StatusCancelled, func(id uuid.UUID) error {
			notes := "late edit"
			_, err := f.svc.Update(context.Background(), ident, id, UpdateInput{Notes: &notes})
			return err
		}},
		{"delete validated", StatusValidated, func(id uuid.UUID) error {
			return f.svc.Delete(context.Background(), ident, id)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := advance(t, tt.from)
			if err := tt.op(p.ID); !apperr.IsKind(err, apperr.KindConflict) {
				t.Errorf("expected conflict from %s, got %v", tt.from, err)
			}
		})
	}
}

func TestDispense_DeductsInOrderAndFlipsStatusLast(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10, "Metformin": 20})
	ident := doctor()
	p := createPrescription(t, f, ident,
		Medication{Name: "Aspirin", Dosage: "2 tablets"},
		Medication{Name: "Metformin", Dosage: "3 tablets"},
	)
	if _, err := f.svc.Validate(context.Background(), ident, p.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	dispensed, results, err := f.svc.Dispense(context.Background(), ident, p.ID)
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if dispensed.Status != StatusDispensed || dispensed.DispensedAt == nil {
		t.Errorf("expected dispensed status with timestamp, got %+v", dispensed)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 deduction results, got %d", len(results))
	}
	if results[0].Name != "Aspirin" || results[1].Name != "Metformin" {
		t.Errorf("results must follow declared order: %+v", results)
	}
	if results[0].RemainingStock != 8 || results[1].RemainingStock != 17 {
		t.Errorf("unexpected remaining stock: %+v", results)
	}
	if f.stock.stock["Aspirin"] != 8 || f.stock.stock["Metformin"] != 17 {
		t.Errorf("stock not deducted: %v", f.stock.stock)
	}
}

func TestDispense_PartialFailureRollsBack(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10, "Metformin": 20})
	ident := doctor()
	p := createPrescription(t, f, ident,
		Medication{Name: "Aspirin", Dosage: "2 tablets"},
		Medication{Name: "Metformin", Dosage: "3 tablets"},
	)
	if _, err := f.svc.Validate(context.Background(), ident, p.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	before := f.stock.totalStock()
	f.stock.failAt = "Metformin"

	_, _, err := f.svc.Dispense(context.Background(), ident, p.ID)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := f.stock.totalStock(); got != before {
		t.Errorf("failed dispense must conserve stock: before %d, after %d", before, got)
	}
	if f.stock.restocks != 1 {
		t.Errorf("expected 1 compensating restock, got %d", f.stock.restocks)
	}

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	if stored.Status != StatusValidated {
		t.Errorf("failed dispense must leave status validated, got %s", stored.Status)
	}
	if stored.DispensedAt != nil {
		t.Error("failed dispense must not set DispensedAt")
	}
}

func TestDispense_Expired(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	ident := doctor()
	past := time.Now().AddDate(0, 0, -1)
	p, err := f.svc.Create(context.Background(), ident, CreateInput{
		PatientName: "Jane Doe",
		PatientAge:  34,
		Medications: []Medication{{Name: "Aspirin", Dosage: "1 tablet"}},
		ExpiryDate:  &past,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Validate(context.Background(), ident, p.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	_, _, err = f.svc.Dispense(context.Background(), ident, p.ID)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict for expired prescription, got %v", err)
	}
	if f.stock.stock["Aspirin"] != 10 {
		t.Errorf("expired dispense must not touch stock, got %d", f.stock.stock["Aspirin"])
	}
}

func TestDispense_BlockedByUnavailableSnapshot(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	ident := doctor()
	p := createPrescription(t, f, ident, Medication{Name: "Aspirin", Dosage: "2 tablets"})
	if _, err := f.svc.Validate(context.Background(), ident, p.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// an update while validated may replace the medications with an
	// insufficient snapshot
	if _, err := f.svc.Update(context.Background(), ident, p.ID, UpdateInput{
		Medications: []Medication{{Name: "Aspirin", Dosage: "20 tablets"}},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// even once stock is replenished, dispense must honor the snapshot
	f.stock.stock["Aspirin"] = 100

	_, _, err := f.svc.Dispense(context.Background(), ident, p.ID)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for unavailable snapshot, got %v", err)
	}
	if f.stock.deducts != 0 {
		t.Errorf("no deduction may run before the availability guard, got %d", f.stock.deducts)
	}
	got, _ := f.repo.GetByID(context.Background(), p.ID)
	if got.Status != StatusValidated || got.DispensedAt != nil {
		t.Errorf("prescription must stay validated, got status=%s", got.Status)
	}
}

func TestAuthorization_NonOwnerRejectedAndRecordUnchanged(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	owner := doctor()
	stranger := doctor()
	p := createPrescription(t, f, owner, Medication{Name: "Aspirin", Dosage: "1 tablet"})

	ops := map[string]func() error{
		"get": func() error {
			_, err := f.svc.Get(context.Background(), stranger, p.ID)
			return err
		},
		"update": func() error {
			notes := "sneaky"
			_, err := f.svc.Update(context.Background(), stranger, p.ID, UpdateInput{Notes: &notes})
			return err
		},
		"validate": func() error {
			_, err := f.svc.Validate(context.Background(), stranger, p.ID)
			return err
		},
		"dispense": func() error {
			_, _, err := f.svc.Dispense(context.Background(), stranger, p.ID)
			return err
		},
		"cancel": func() error {
			_, err := f.svc.Cancel(context.Background(), stranger, p.ID)
			return err
		},
		"delete": func() error {
			return f.svc.Delete(context.Background(), stranger, p.ID)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !apperr.IsKind(err, apperr.KindAuthorization) {
				t.Errorf("expected authorization error, got %v", err)
			}
		})
	}

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	if stored.Status != StatusUnvalidated || stored.Notes != nil {
		t.Errorf("rejected operations must leave the record unchanged: %+v", stored)
	}
	if f.stock.stock["Aspirin"] != 10 {
		t.Errorf("rejected operations must leave stock unchanged, got %d", f.stock.stock["Aspirin"])
	}
}

func TestAuthorization_ElevatedRolesBypassOwnership(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	owner := doctor()
	p := createPrescription(t, f, owner, Medication{Name: "Aspirin", Dosage: "1 tablet"})

	ph := pharmacist()
	if _, err := f.svc.Get(context.Background(), ph, p.ID); err != nil {
		t.Errorf("pharmacist should read any prescription: %v", err)
	}
	if _, err := f.svc.Validate(context.Background(), ph, p.ID); err != nil {
		t.Errorf("pharmacist should validate any prescription: %v", err)
	}

	adm := auth.Identity{ID: uuid.New(), Role: auth.RoleAdmin}
	if _, _, err := f.svc.Dispense(context.Background(), adm, p.ID); err != nil {
		t.Errorf("admin should dispense any prescription: %v", err)
	}
}

func TestList_ScopedToOwnerUnlessElevated(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 100})
	alice := doctor()
	bob := doctor()
	createPrescription(t, f, alice, Medication{Name: "Aspirin", Dosage: "1 tablet"})
	createPrescription(t, f, alice, Medication{Name: "Aspirin", Dosage: "1 tablet"})
	createPrescription(t, f, bob, Medication{Name: "Aspirin", Dosage: "1 tablet"})

	_, total, err := f.svc.List(context.Background(), alice, nil, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Errorf("owner should see only their prescriptions, got %d", total)
	}

	_, total, err = f.svc.List(context.Background(), pharmacist(), nil, 20, 0)
	if err != nil {
		t.Fatalf("list elevated: %v", err)
	}
	if total != 3 {
		t.Errorf("elevated caller should see all prescriptions, got %d", total)
	}

	status := StatusUnvalidated
	_, total, err = f.svc.List(context.Background(), alice, &status, 20, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if total != 2 {
		t.Errorf("status filter should match 2, got %d", total)
	}
}

func TestUpdate_ReplacingMedicationsRerunsCheck(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10, "Metformin": 0})
	ident := doctor()
	p := createPrescription(t, f, ident, Medication{Name: "Aspirin", Dosage: "1 tablet"})
	if !p.AllMedicationsAvailable {
		t.Fatal("precondition: aspirin should be available")
	}

	updated, err := f.svc.Update(context.Background(), ident, p.ID, UpdateInput{
		Medications: []Medication{{Name: "Metformin", Dosage: "2 tablets"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AllMedicationsAvailable {
		t.Error("flag should be recomputed after replacing medications")
	}
	if len(updated.Medications) != 1 || updated.Medications[0].Name != "Metformin" {
		t.Errorf("medications not replaced: %+v", updated.Medications)
	}
	if updated.Medications[0].StockAvailable {
		t.Error("Metformin with zero stock should be unavailable")
	}
}

func TestDelete_OnlyUnvalidated(t *testing.T) {
	f := newFixture(map[string]int{"Aspirin": 10})
	ident := doctor()
	p := createPrescription(t, f, ident, Medication{Name: "Aspirin", Dosage: "1 tablet"})

	if err := f.svc.Delete(context.Background(), ident, p.ID); err != nil {
		t.Fatalf("delete unvalidated: %v", err)
	}
	if _, err := f.repo.GetByID(context.Background(), p.ID); err != ErrNotFound {
		t.Errorf("expected record gone, got %v", err)
	}
}

// End-to-end walk: create with full availability, validate, dispense, and
// confirm stock accounting plus notifications along the way.
func TestLifecycle_EndToEnd(t *testing.T) {
	f := newFixture(map[string]int{"Paracetamol": 50, "Amoxicillin": 30})
	ident := doctor()

	p := createPrescription(t, f, ident,
		Medication{Name: "Paracetamol", Dosage: "2 tablets"},
		Medication{Name: "Amoxicillin", Dosage: "3 capsules"},
	)
	if !p.AllMedicationsAvailable {
		t.Fatalf("expected all available: %+v", p.Medications)
	}

	if _, err := f.svc.Validate(context.Background(), ident, p.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	_, results, err := f.svc.Dispense(context.Background(), ident, p.ID)
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 deduction results, got %d", len(results))
	}

	if f.stock.stock["Paracetamol"] != 48 {
		t.Errorf("expected Paracetamol 48, got %d", f.stock.stock["Paracetamol"])
	}
	if f.stock.stock["Amoxicillin"] != 27 {
		t.Errorf("expected Amoxicillin 27, got %d", f.stock.stock["Amoxicillin"])
	}

	want := []string{"prescription-created", "prescription-validated", "prescription-dispensed"}
	if len(f.notifier.events) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), f.notifier.events)
	}
	for i, event := range want {
		if f.notifier.events[i] != event {
			t.Errorf("notification %d: expected %q, got %q", i, event, f.notifier.events[i])
		}
	}
}
