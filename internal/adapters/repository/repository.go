package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kvetinski/phonebook/internal/domain"
	"github.com/kvetinski/phonebook/internal/service/contact"
	"github.com/kvetinski/phonebook/internal/telemetry"
)

// Repository stores contacts in a SQL database. Identity is assigned by the
// database and newest contacts are listed first.
type Repository struct {
	db      *sqlx.DB
	metrics *telemetry.Metrics
}

var _ contact.Store = (*Repository)(nil)

type contactRow struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Mobile    string    `db:"mobile"`
	Home      string    `db:"home"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r contactRow) toDomain() domain.Contact {
	return domain.Contact{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Telephone: domain.Telephone{
			Mobile: r.Mobile,
			Home:   r.Home,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const selectColumns = `CAST(id AS TEXT) AS id, username, email, mobile, home, created_at, updated_at`

func New(db *sqlx.DB) *Repository {
	return NewWithMetrics(db, nil)
}

func NewWithMetrics(db *sqlx.DB, metrics *telemetry.Metrics) *Repository {
	return &Repository{
		db:      db,
		metrics: metrics,
	}
}

func (r *Repository) List(ctx context.Context) ([]domain.Contact, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("list", status, time.Since(start))
	}()

	const q = `SELECT ` + selectColumns + ` FROM contacts ORDER BY contacts.created_at DESC, contacts.id DESC`

	var rows []contactRow
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		status = "error"
		return nil, &domain.StorageError{Op: "list contacts", Err: err}
	}

	out := make([]domain.Contact, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Contact, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("get", status, time.Since(start))
	}()

	key, ok := parseID(id)
	if !ok {
		status = "not_found"
		return domain.Contact{}, domain.ErrContactNotFound
	}

	q := r.db.Rebind(`SELECT ` + selectColumns + ` FROM contacts WHERE contacts.id = ?`)

	var row contactRow
	if err := r.db.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			status = "not_found"
			return domain.Contact{}, domain.ErrContactNotFound
		}

		status = "error"
		return domain.Contact{}, &domain.StorageError{Op: "get contact", Err: err}
	}

	return row.toDomain(), nil
}

func (r *Repository) Insert(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("insert", status, time.Since(start))
	}()

	q := r.db.Rebind(`
		INSERT INTO contacts (username, email, mobile, home, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING CAST(id AS TEXT)
	`)

	err := r.db.QueryRowxContext(ctx, q,
		c.Username, c.Email, c.Telephone.Mobile, c.Telephone.Home, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		status = "error"
		return domain.Contact{}, &domain.StorageError{Op: "insert contact", Err: err}
	}

	return c, nil
}

// Update overwrites the mutable columns. createdAt is never written.
func (r *Repository) Update(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("update", status, time.Since(start))
	}()

	key, ok := parseID(c.ID)
	if !ok {
		status = "not_found"
		return domain.Contact{}, domain.ErrContactNotFound
	}

	q := r.db.Rebind(`
		UPDATE contacts
		SET username = ?,
		    email = ?,
		    mobile = ?,
		    home = ?,
		    updated_at = ?
		WHERE id = ?
	`)

	res, err := r.db.ExecContext(ctx, q, c.Username, c.Email, c.Telephone.Mobile, c.Telephone.Home, c.UpdatedAt, key)
	if err != nil {
		status = "error"
		return domain.Contact{}, &domain.StorageError{Op: "update contact", Err: err}
	}

	if err = expectRow(res); err != nil {
		status = statusOf(err)
		return domain.Contact{}, err
	}

	return c, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("delete", status, time.Since(start))
	}()

	key, ok := parseID(id)
	if !ok {
		status = "not_found"
		return domain.ErrContactNotFound
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM contacts WHERE contacts.id = ?`), key)
	if err != nil {
		status = "error"
		return &domain.StorageError{Op: "delete contact", Err: err}
	}

	if err = expectRow(res); err != nil {
		status = statusOf(err)
		return err
	}

	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("delete_all", status, time.Since(start))
	}()

	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts`)
	if err != nil {
		status = "error"
		return 0, &domain.StorageError{Op: "delete contacts", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		status = "error"
		return 0, &domain.StorageError{Op: "delete contacts rows affected", Err: err}
	}

	return int(n), nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		r.metrics.ObserveDB("count", status, time.Since(start))
	}()

	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM contacts`); err != nil {
		status = "error"
		return 0, &domain.StorageError{Op: "count contacts", Err: err}
	}

	return n, nil
}

// parseID rejects ids the database could never have assigned. Only the
// canonical decimal form matches, so "01" and "+1" are not aliases of "1".
func parseID(id string) (int64, bool) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 || strconv.FormatInt(key, 10) != id {
		return 0, false
	}

	return key, true
}

func expectRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "rows affected", Err: err}
	}

	if rows == 0 {
		return domain.ErrContactNotFound
	}

	return nil
}

func statusOf(err error) string {
	if errors.Is(err, domain.ErrContactNotFound) {
		return "not_found"
	}

	return "error"
}
