package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Drug maps to the drug table: one row per stocked medicine.
// Stock is never negative; it is mutated only by the conditional
// decrement in DeductStock and the compensating AddStock.
type Drug struct {
	ID           uuid.UUID `db:"id" json:"id"`
	MedicineID   string    `db:"medicine_id" json:"medicine_id"`
	MedicineName string    `db:"medicine_name" json:"medicine_name"`
	GroupName    string    `db:"group_name" json:"group_name,omitempty"`
	Stock        int       `db:"stock" json:"stock"`
	CreatedBy    uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StockCheck is the result of resolving one medication against the
// inventory. Failures are captured on the struct, never thrown: one bad
// entry must not abort a batch check.
type StockCheck struct {
	Name             string     `json:"name"`
	Dosage           string     `json:"dosage"`
	Frequency        string     `json:"frequency,omitempty"`
	Duration         string     `json:"duration,omitempty"`
	DrugID           *uuid.UUID `json:"drug_id,omitempty"`
	StockChecked     bool       `json:"stock_checked"`
	StockAvailable   bool       `json:"stock_available"`
	RequiredQuantity int        `json:"required_quantity"`
	AvailableStock   int        `json:"available_stock"`
	InventoryError   string     `json:"inventory_error,omitempty"`
}

// DeductionResult reports the outcome of one stock deduction during a
// dispense.
type DeductionResult struct {
	Name           string `json:"name"`
	Success        bool   `json:"success"`
	RemainingStock int    `json:"remaining_stock,omitempty"`
	Error          string `json:"error,omitempty"`
}
