package prescription

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusUnvalidated Status = "unvalidated"
	StatusValidated   Status = "validated"
	StatusDispensed   Status = "dispensed"
	StatusCancelled   Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUnvalidated, StatusValidated, StatusDispensed, StatusCancelled:
		return true
	}
	return false
}

// DefaultValidityDays is how long a new prescription stays usable when the
// caller does not supply an expiry date.
const DefaultValidityDays = 30

// Medication is one prescribed line item. The first four fields come from
// the prescriber; the rest is the inventory snapshot taken at create or
// update time. The whole list is persisted as a single JSONB column.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`

	DrugID           *uuid.UUID `json:"drug_id,omitempty"`
	StockChecked     bool       `json:"stock_checked"`
	StockAvailable   bool       `json:"stock_available"`
	RequiredQuantity int        `json:"required_quantity,omitempty"`
	AvailableStock   int        `json:"available_stock,omitempty"`
	InventoryError   string     `json:"inventory_error,omitempty"`
}

type Prescription struct {
	ID                      uuid.UUID    `json:"id"`
	Owner                   uuid.UUID    `json:"owner"`
	PatientName             string       `json:"patient_name"`
	PatientAge              int          `json:"patient_age"`
	Medications             []Medication `json:"medications"`
	Notes                   *string      `json:"notes,omitempty"`
	Status                  Status       `json:"status"`
	AllMedicationsAvailable bool         `json:"all_medications_available"`
	ExpiryDate              time.Time    `json:"expiry_date"`
	ValidatedAt             *time.Time   `json:"validated_at,omitempty"`
	DispensedAt             *time.Time   `json:"dispensed_at,omitempty"`
	CancelledAt             *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

// Expired reports whether the prescription's validity window has passed.
func (p *Prescription) Expired(now time.Time) bool {
	return now.After(p.ExpiryDate)
}

// UnavailableMedications returns the medications whose stock was checked
// and came up short. Entries the check could not reach are not included;
// validation treats those as unknown rather than missing.
func (p *Prescription) UnavailableMedications() []Medication {
	var out []Medication
	for _, m := range p.Medications {
		if m.StockChecked && !m.StockAvailable {
			out = append(out, m)
		}
	}
	return out
}
