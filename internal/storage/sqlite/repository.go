// Package sqlite is the embedded storage backend built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"spendwise/internal/core"
	"spendwise/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Repository)(nil)

const selectColumns = "SELECT id, owner_id, date, category, amount_cents, description FROM expenses"

type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, core.Persistence("find expense", err)
	}
	return e, nil
}

func (r *Repository) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := storage.CheckSave(e); err != nil {
		return core.Expense{}, err
	}
	if !e.HasID() {
		return r.insert(ctx, e)
	}
	return r.update(ctx, e)
}

func (r *Repository) insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (owner_id, date, category, amount_cents, description) VALUES (?, ?, ?, ?, ?)`,
		e.OwnerID, e.Date.String(), e.Category, e.Amount.Cents, e.Description)
	if err != nil {
		return core.Expense{}, core.Persistence("insert expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, core.Persistence("insert expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", id,
		"owner_id", e.OwnerID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return e.WithID(id), nil
}

func (r *Repository) update(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		    SET date = ?, category = ?, amount_cents = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		  WHERE id = ? AND owner_id = ?`,
		e.Date.String(), e.Category, e.Amount.Cents, e.Description, e.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, core.Persistence("update expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, core.Persistence("update expense", err)
	}
	if n == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return core.Persistence("delete expense", err)
	}
	return nil
}

func (r *Repository) FindBy(ctx context.Context, c core.Criteria, offset, limit int) ([]core.Expense, error) {
	if err := storage.CheckQuery(c, offset, limit); err != nil {
		return nil, err
	}
	where, args := storage.SQLite.Where(c)
	query := selectColumns + " WHERE " + where + " ORDER BY date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.Persistence("find expenses", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, core.Persistence("scan expense", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("find expenses", err)
	}
	return out, nil
}

func (r *Repository) CountBy(ctx context.Context, c core.Criteria) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	where, args := storage.SQLite.Where(c)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE "+where, args...).Scan(&n); err != nil {
		return 0, core.Persistence("count expenses", err)
	}
	return n, nil
}

func (r *Repository) ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error) {
	if err := core.ForOwner(ownerID).Validate(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT CAST(strftime('%Y', date) AS INTEGER) AS year
		   FROM expenses WHERE owner_id = ? ORDER BY year DESC`, ownerID)
	if err != nil {
		return nil, core.Persistence("list years", err)
	}
	defer rows.Close()

	years := make([]int, 0)
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, core.Persistence("scan year", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("list years", err)
	}
	return years, nil
}

func (r *Repository) SumAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error) {
	groups, err := r.groupByCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Money, len(groups))
	for cat, g := range groups {
		out[cat] = core.Cents(g.sum)
	}
	return out, nil
}

func (r *Repository) AverageAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error) {
	groups, err := r.groupByCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Money, len(groups))
	for cat, g := range groups {
		out[cat] = core.Average(core.Cents(g.sum), g.count)
	}
	return out, nil
}

func (r *Repository) SumAmounts(ctx context.Context, c core.Criteria) (core.Money, error) {
	if err := c.Validate(); err != nil {
		return core.Money{}, err
	}
	where, args := storage.SQLite.Where(c)
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE "+where, args...).Scan(&total); err != nil {
		return core.Money{}, core.Persistence("sum expenses", err)
	}
	return core.Cents(total), nil
}

func (r *Repository) ListOwners(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM expenses ORDER BY owner_id`)
	if err != nil {
		return nil, core.Persistence("list owners", err)
	}
	defer rows.Close()

	owners := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, core.Persistence("scan owner", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("list owners", err)
	}
	return owners, nil
}

type categoryGroup struct {
	sum   int64
	count int64
}

// groupByCategory aggregates in the database; averaging happens in Go so
// rounding stays exact.
func (r *Repository) groupByCategory(ctx context.Context, c core.Criteria) (map[string]categoryGroup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	where, args := storage.SQLite.Where(c)
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, SUM(amount_cents), COUNT(*) FROM expenses WHERE "+where+" GROUP BY category", args...)
	if err != nil {
		return nil, core.Persistence("group expenses", err)
	}
	defer rows.Close()

	out := make(map[string]categoryGroup)
	for rows.Next() {
		var (
			cat string
			g   categoryGroup
		)
		if err := rows.Scan(&cat, &g.sum, &g.count); err != nil {
			return nil, core.Persistence("scan category group", err)
		}
		out[cat] = g
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("group expenses", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &date, &e.Category, &e.Amount.Cents, &e.Description); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d
	return e, nil
}
