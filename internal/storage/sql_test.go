package storage

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"spendwise/internal/core"
)

func TestDialectWhere(t *testing.T) {
	from, to := core.NewDate(2024, 5, 1), core.NewDate(2024, 6, 1)
	c := core.ForOwner(1).WithCategory("Groceries").Between(from, to)

	tests := []struct {
		name     string
		dialect  Dialect
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "sqlite",
			dialect:  SQLite,
			wantSQL:  "owner_id = ? AND category = ? AND date >= ? AND date < ?",
			wantArgs: []any{int64(1), "Groceries", "2024-05-01", "2024-06-01"},
		},
		{
			name:     "postgres",
			dialect:  Postgres,
			wantSQL:  "owner_id = $1 AND category = $2 AND date >= $3 AND date < $4",
			wantArgs: []any{int64(1), "Groceries", from.Time, to.Time},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.dialect.Where(c)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestDialectWhereOwnerOnly(t *testing.T) {
	sql, args := Postgres.Where(core.ForOwner(9))
	if sql != "owner_id = $1" || len(args) != 1 {
		t.Fatalf("unexpected translation %q %v", sql, args)
	}
	if _, ok := args[0].(time.Time); ok {
		t.Fatal("owner must not be converted")
	}
}

func TestCheckQuery(t *testing.T) {
	ok := core.ForOwner(1)
	if err := CheckQuery(ok, 0, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tc := range []struct {
		c             core.Criteria
		offset, limit int
	}{
		{core.ForOwner(0), 0, 10},
		{ok, -1, 10},
		{ok, 0, -1},
		{ok.Between(core.NewDate(2024, 2, 1), core.NewDate(2024, 1, 1)), 0, 10},
	} {
		if err := CheckQuery(tc.c, tc.offset, tc.limit); !errors.Is(err, core.ErrValidation) {
			t.Errorf("CheckQuery(%+v, %d, %d) = %v, want validation error", tc.c, tc.offset, tc.limit, err)
		}
	}
}
