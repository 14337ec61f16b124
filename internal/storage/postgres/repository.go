// Package postgres is the server storage backend built on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

var _ storage.Store = (*Repository)(nil)

const selectColumns = "SELECT id, owner_id, date, category, amount_cents, description FROM expenses"

type Repository struct {
	pool *pgxpool.Pool
}

// Options tunes the connection pool. Zero values keep the pgxpool defaults.
type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
	Retries         int
}

// Open connects to dsn with retries, applies migrations and returns the
// repository.
func Open(ctx context.Context, dsn string, opts Options) (*Repository, error) {
	pool, err := connect(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func connect(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	poolConfig, cfgErr := pgxpool.ParseConfig(dsn)
	if cfgErr != nil {
		return nil, fmt.Errorf("parse database config: %w", cfgErr)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}

	retries := opts.Retries
	if retries <= 0 {
		retries = 5
	}
	backoff := time.Second

	var (
		pool *pgxpool.Pool
		err  error
	)
	for i := 0; i < retries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}

		slog.WarnContext(ctx, "Postgres connection attempt failed",
			"attempt", i+1,
			"retries", retries,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", retries, err)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Find(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, selectColumns+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
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
		var id int64
		err := r.pool.QueryRow(ctx,
			`INSERT INTO expenses (owner_id, date, category, amount_cents, description)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			e.OwnerID, e.Date.Time, e.Category, e.Amount.Cents, e.Description,
		).Scan(&id)
		if err != nil {
			return core.Expense{}, core.Persistence("insert expense", err)
		}
		return e.WithID(id), nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses
		    SET date = $1, category = $2, amount_cents = $3, description = $4, updated_at = now()
		  WHERE id = $5 AND owner_id = $6`,
		e.Date.Time, e.Category, e.Amount.Cents, e.Description, e.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, core.Persistence("update expense", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND owner_id = $2`, id, ownerID); err != nil {
		return core.Persistence("delete expense", err)
	}
	return nil
}

func (r *Repository) FindBy(ctx context.Context, c core.Criteria, offset, limit int) ([]core.Expense, error) {
	if err := storage.CheckQuery(c, offset, limit); err != nil {
		return nil, err
	}
	where, args := storage.Postgres.Where(c)
	query := fmt.Sprintf("%s WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d",
		selectColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
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
	where, args := storage.Postgres.Where(c)
	var n int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses WHERE "+where, args...).Scan(&n); err != nil {
		return 0, core.Persistence("count expenses", err)
	}
	return n, nil
}

func (r *Repository) ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error) {
	if err := core.ForOwner(ownerID).Validate(); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT EXTRACT(YEAR FROM date)::int AS year
		   FROM expenses WHERE owner_id = $1 ORDER BY year DESC`, ownerID)
	if err != nil {
		return nil, core.Persistence("list years", err)
	}
	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
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
	where, args := storage.Postgres.Where(c)
	var total int64
	err := r.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0)::bigint FROM expenses WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return core.Money{}, core.Persistence("sum expenses", err)
	}
	return core.Cents(total), nil
}

func (r *Repository) ListOwners(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM expenses ORDER BY owner_id`)
	if err != nil {
		return nil, core.Persistence("list owners", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, core.Persistence("list owners", err)
	}
	return owners, nil
}

type categoryGroup struct {
	sum   int64
	count int64
}

func (r *Repository) groupByCategory(ctx context.Context, c core.Criteria) (map[string]categoryGroup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	where, args := storage.Postgres.Where(c)
	rows, err := r.pool.Query(ctx,
		"SELECT category, SUM(amount_cents)::bigint, COUNT(*) FROM expenses WHERE "+where+" GROUP BY category",
		args...)
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

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e    core.Expense
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &date, &e.Category, &e.Amount.Cents, &e.Description); err != nil {
		return core.Expense{}, err
	}
	e.Date = core.DateOf(date)
	return e, nil
}
