package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/rentbot/core/logger"
	"github.com/m3rciful/rentbot/internal/model"
)

// updateAttempts bounds the optimistic retry loop of Postgres.Update.
const updateAttempts = 5

// uniqueViolation is the SQLSTATE of a unique index conflict.
const uniqueViolation pq.ErrorCode = "23505"

type userRow struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Username  string `db:"username"`
	Phone     string `db:"phone"`
	Apartment string `db:"apartment"`
	Balance   int64  `db:"balance"`
	IsPaid    bool   `db:"is_paid"`
	Lang      string `db:"lang"`
	Version   int64  `db:"version"`
}

type paymentRow struct {
	UserID     int64     `db:"user_id"`
	Month      string    `db:"month"`
	Amount     int64     `db:"amount"`
	PaidAt     time.Time `db:"paid_at"`
	Submission string    `db:"submission"`
}

const (
	selectUsersSQL = `SELECT id, first_name, last_name, username, phone, apartment, balance, is_paid, lang, version
FROM users ORDER BY created_at, id`
	selectUserSQL = `SELECT id, first_name, last_name, username, phone, apartment, balance, is_paid, lang, version
FROM users WHERE id = $1`
	selectPaymentsSQL     = `SELECT user_id, month, amount, paid_at, submission FROM payments ORDER BY user_id, id`
	selectUserPaymentsSQL = `SELECT user_id, month, amount, paid_at, submission FROM payments WHERE user_id = $1 ORDER BY id`
	insertUserSQL         = `INSERT INTO users (id, first_name, last_name, username, phone, apartment, balance, is_paid, lang)
VALUES (:id, :first_name, :last_name, :username, :phone, :apartment, :balance, :is_paid, :lang)
ON CONFLICT (id) DO NOTHING`
	upsertUserSQL = `INSERT INTO users (id, first_name, last_name, username, phone, apartment, balance, is_paid, lang)
VALUES (:id, :first_name, :last_name, :username, :phone, :apartment, :balance, :is_paid, :lang)
ON CONFLICT (id) DO UPDATE SET
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    username = EXCLUDED.username,
    phone = EXCLUDED.phone,
    apartment = EXCLUDED.apartment,
    balance = EXCLUDED.balance,
    is_paid = EXCLUDED.is_paid,
    lang = EXCLUDED.lang,
    version = users.version + 1,
    updated_at = now()`
	updateUserSQL = `UPDATE users SET
    first_name = :first_name,
    last_name = :last_name,
    username = :username,
    phone = :phone,
    apartment = :apartment,
    balance = :balance,
    is_paid = :is_paid,
    lang = :lang,
    version = version + 1,
    updated_at = now()
WHERE id = :id AND version = :version`
	insertPaymentSQL = `INSERT INTO payments (user_id, month, amount, paid_at, submission)
VALUES (:user_id, :month, :amount, :paid_at, :submission)`
	countPaymentsSQL = `SELECT count(*) FROM payments WHERE user_id = $1`
)

// Postgres stores tenants in the users and payments tables.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an opened connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Load(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := p.db.SelectContext(ctx, &rows, selectUsersSQL); err != nil {
		return nil, fmt.Errorf("store: select users: %w", err)
	}
	var payments []paymentRow
	if err := p.db.SelectContext(ctx, &payments, selectPaymentsSQL); err != nil {
		return nil, fmt.Errorf("store: select payments: %w", err)
	}
	byUser := make(map[int64][]model.Payment, len(rows))
	for _, pr := range payments {
		byUser[pr.UserID] = append(byUser[pr.UserID], pr.toModel())
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toModel(byUser[r.ID]))
	}
	return users, nil
}

func (p *Postgres) Save(ctx context.Context, users []model.User) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range users {
		if _, err := tx.NamedExecContext(ctx, upsertUserSQL, fromModel(u, 0)); err != nil {
			return fmt.Errorf("store: upsert user %d: %w", u.ID, err)
		}
		var stored int
		if err := tx.GetContext(ctx, &stored, countPaymentsSQL, u.ID); err != nil {
			return fmt.Errorf("store: count payments %d: %w", u.ID, err)
		}
		if err := insertPayments(ctx, tx, u.ID, tail(u.Payments, stored)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, id int64) (model.User, error) {
	u, _, err := p.find(ctx, p.db, id)
	return u, err
}

func (p *Postgres) Ensure(ctx context.Context, defaults model.User) (model.User, bool, error) {
	res, err := p.db.NamedExecContext(ctx, insertUserSQL, fromModel(defaults, 0))
	if err != nil {
		return model.User{}, false, fmt.Errorf("store: insert user %d: %w", defaults.ID, err)
	}
	affected, _ := res.RowsAffected()
	u, err := p.Find(ctx, defaults.ID)
	if err != nil {
		return model.User{}, false, err
	}
	if affected > 0 {
		logger.Info(ctx, component, "user.created", slog.Int64("user_id", u.ID))
	}
	return u, affected > 0, nil
}

// Update retries on version mismatch so concurrent writers never overwrite each other.
func (p *Postgres) Update(ctx context.Context, id int64, fn func(*model.User) error) (model.User, error) {
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		current, version, err := p.find(ctx, p.db, id)
		if err != nil {
			return model.User{}, err
		}
		next := current.Clone()
		if err := fn(&next); err != nil {
			return model.User{}, err
		}
		next.ID = id

		ok, err := p.commitUpdate(ctx, next, version, len(current.Payments))
		if err != nil {
			return model.User{}, err
		}
		if ok {
			return next, nil
		}
		logger.Warn(ctx, component, "update.conflict",
			slog.Int64("user_id", id),
			slog.Int("attempt", attempt),
		)
	}
	return model.User{}, model.NewError("user", model.ErrConflict)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) commitUpdate(ctx context.Context, next model.User, version int64, stored int) (bool, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NamedExecContext(ctx, updateUserSQL, fromModel(next, version))
	if err != nil {
		return false, fmt.Errorf("store: update user %d: %w", next.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if err := insertPayments(ctx, tx, next.ID, tail(next.Payments, stored)); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit: %w", err)
	}
	return true, nil
}

func (p *Postgres) find(ctx context.Context, q sqlx.QueryerContext, id int64) (model.User, int64, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, q, &row, selectUserSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, 0, model.NewError("user", model.ErrNotFound)
		}
		return model.User{}, 0, fmt.Errorf("store: select user %d: %w", id, err)
	}
	var payments []paymentRow
	if err := sqlx.SelectContext(ctx, q, &payments, selectUserPaymentsSQL, id); err != nil {
		return model.User{}, 0, fmt.Errorf("store: select payments %d: %w", id, err)
	}
	list := make([]model.Payment, 0, len(payments))
	for _, pr := range payments {
		list = append(list, pr.toModel())
	}
	return row.toModel(list), row.Version, nil
}

func insertPayments(ctx context.Context, tx *sqlx.Tx, userID int64, payments []model.Payment) error {
	for _, pay := range payments {
		row := paymentRow{
			UserID:     userID,
			Month:      pay.Month,
			Amount:     pay.Amount,
			PaidAt:     pay.Date,
			Submission: pay.Submission,
		}
		if _, err := tx.NamedExecContext(ctx, insertPaymentSQL, row); err != nil {
			return paymentError(userID, err)
		}
	}
	return nil
}

// paymentError reports a second insert of the same submission as already
// reviewed.
func paymentError(userID int64, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return model.NewError("payment", model.ErrAlreadyReviewed)
	}
	return fmt.Errorf("store: insert payment %d: %w", userID, err)
}

func tail(payments []model.Payment, stored int) []model.Payment {
	if stored >= len(payments) {
		return nil
	}
	return payments[stored:]
}

func fromModel(u model.User, version int64) userRow {
	return userRow{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Phone:     u.Phone,
		Apartment: u.Apartment,
		Balance:   u.Balance,
		IsPaid:    u.IsPaid,
		Lang:      u.Lang,
		Version:   version,
	}
}

func (r userRow) toModel(payments []model.Payment) model.User {
	if payments == nil {
		payments = []model.Payment{}
	}
	return model.User{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Username:  r.Username,
		Phone:     r.Phone,
		Apartment: r.Apartment,
		Balance:   r.Balance,
		IsPaid:    r.IsPaid,
		Payments:  payments,
		Lang:      r.Lang,
	}
}

func (r paymentRow) toModel() model.Payment {
	return model.Payment{
		Month:      r.Month,
		Amount:     r.Amount,
		Date:       r.PaidAt,
		Submission: r.Submission,
	}
}
