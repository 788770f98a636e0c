package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxtrack/rxtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type drugRepoPG struct{ pool *pgxpool.Pool }

func NewDrugRepoPG(pool *pgxpool.Pool) DrugRepository {
	return &drugRepoPG{pool: pool}
}

func (r *drugRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const drugCols = `id, medicine_id, medicine_name, group_name, stock, created_by, created_at, updated_at`

func (r *drugRepoPG) scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.MedicineID, &d.MedicineName, &d.GroupName, &d.Stock,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *drugRepoPG) Create(ctx context.Context, d *Drug) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO drug (id, medicine_id, medicine_name, group_name, stock, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		d.ID, d.MedicineID, d.MedicineName, d.GroupName, d.Stock, d.CreatedBy)
	return err
}

func (r *drugRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return r.scanDrug(r.conn(ctx).QueryRow(ctx, `SELECT `+drugCols+` FROM drug WHERE id = $1`, id))
}

func (r *drugRepoPG) GetByMedicineID(ctx context.Context, medicineID string) (*Drug, error) {
	return r.scanDrug(r.conn(ctx).QueryRow(ctx, `SELECT `+drugCols+` FROM drug WHERE medicine_id = $1`, medicineID))
}

func (r *drugRepoPG) Update(ctx context.Context, d *Drug) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE drug SET medicine_id=$2, medicine_name=$3, group_name=$4, stock=$5, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.MedicineID, d.MedicineName, d.GroupName, d.Stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *drugRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM drug WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *drugRepoPG) List(ctx context.Context, nameFilter string, limit, offset int) ([]*Drug, int, error) {
	where := ``
	args := []interface{}{}
	if nameFilter != "" {
		where = ` WHERE medicine_name ILIKE '%' || $1 || '%'`
		args = append(args, nameFilter)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM drug`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+drugCols+` FROM drug`+where+
			` ORDER BY medicine_name ASC LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2),
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Drug
	for rows.Next() {
		d, err := r.scanDrug(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *drugRepoPG) FindByName(ctx context.Context, name string) (*Drug, error) {
	// Substring match is ambiguous when several drugs share a name
	// fragment; ordering by created_at, id makes the winner deterministic.
	return r.scanDrug(r.conn(ctx).QueryRow(ctx, `
		SELECT `+drugCols+` FROM drug
		WHERE medicine_name ILIKE '%' || $1 || '%'
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, name))
}

func (r *drugRepoPG) DeductStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	var remaining int
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE drug SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`, id, qty).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientStock
	}
	return remaining, err
}

func (r *drugRepoPG) AddStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	var remaining int
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE drug SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock`, id, qty).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return remaining, err
}
