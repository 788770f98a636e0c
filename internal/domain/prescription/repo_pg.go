package prescription

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const cols = `id, owner_id, patient_name, patient_age, medications, notes, status,
	all_medications_available, expiry_date, validated_at, dispensed_at, cancelled_at,
	created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.Owner, &p.PatientName, &p.PatientAge, &p.Medications,
		&p.Notes, &p.Status, &p.AllMedicationsAvailable, &p.ExpiryDate,
		&p.ValidatedAt, &p.DispensedAt, &p.CancelledAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, owner_id, patient_name, patient_age, medications,
			notes, status, all_medications_available, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.Owner, p.PatientName, p.PatientAge, p.Medications,
		p.Notes, p.Status, p.AllMedicationsAvailable, p.ExpiryDate).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET patient_name=$2, patient_age=$3, medications=$4, notes=$5,
			status=$6, all_medications_available=$7, expiry_date=$8,
			validated_at=$9, dispensed_at=$10, cancelled_at=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.PatientName, p.PatientAge, p.Medications, p.Notes,
		p.Status, p.AllMedicationsAvailable, p.ExpiryDate,
		p.ValidatedAt, p.DispensedAt, p.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	where := ``
	var args []interface{}
	add := func(clause string, val interface{}) {
		args = append(args, val)
		ph := "$" + strconv.Itoa(len(args))
		if where == "" {
			where = " WHERE " + clause + ph
		} else {
			where += " AND " + clause + ph
		}
	}
	if filter.Owner != nil {
		add("owner_id = ", *filter.Owner)
	}
	if filter.Status != nil {
		add("status = ", *filter.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM prescription`+where+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2),
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
