package services

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// ExpenseInput carries the caller-editable fields of an expense.
type ExpenseInput struct {
	Date        core.Date `json:"date"`
	Category    string    `json:"category" validate:"required,max=100"`
	AmountCents int64     `json:"amount" validate:"gt=0"`
	Description string    `json:"description" validate:"required,max=200"`
}

// ListQuery selects a page of an owner's expenses. Year 0 lists every year;
// Month requires Year. Page and PageSize default to 1 and the configured
// page size.
type ListQuery struct {
	Year     int
	Month    int
	Category string
	Page     int
	PageSize int
}

// ExpensePage is one page of a listing together with the navigation data a
// presentation layer needs.
type ExpensePage struct {
	Items      []core.Expense
	Page       int
	PageSize   int
	TotalPages int
	TotalCount int
	Years      []int
}

// ExpenseService validates caller input and applies it to the repository
// on behalf of one owner.
type ExpenseService struct {
	repo     storage.Repository
	validate *validator.Validate
	opts     Options
}

func NewExpenseService(repo storage.Repository, opts Options) *ExpenseService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &ExpenseService{
		repo:     repo,
		validate: v,
		opts:     opts.withDefaults(log.ComponentExpense),
	}
}

// Create validates in and stores it as a new expense of ownerID.
func (s *ExpenseService) Create(ctx context.Context, ownerID int64, in ExpenseInput) (core.Expense, error) {
	e, err := s.build(ownerID, in)
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := storeCall(ctx, s.opts.StoreTimeout, "save expense", func(ctx context.Context) (core.Expense, error) {
		return s.repo.Save(ctx, e)
	})
	if err != nil {
		s.opts.Logger.LogError(ctx, "Failed to create expense", err, log.OpCreate, log.NewFields().WithExpense(e))
		return core.Expense{}, err
	}

	s.opts.Logger.InfoContext(ctx, "Expense created", log.NewFields().WithExpense(saved).ToSlice()...)
	return saved, nil
}

// Update replaces every editable field of expense id. An expense owned by
// someone else is reported as core.ErrNotFound.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id int64, in ExpenseInput) (core.Expense, error) {
	if _, err := s.build(ownerID, in); err != nil {
		return core.Expense{}, err
	}
	current, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}
	next, err := current.Updated(in.Date, in.Category, core.Cents(in.AmountCents), in.Description)
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := storeCall(ctx, s.opts.StoreTimeout, "save expense", func(ctx context.Context) (core.Expense, error) {
		return s.repo.Save(ctx, next)
	})
	if err != nil {
		s.opts.Logger.LogError(ctx, "Failed to update expense", err, log.OpUpdate, log.NewFields().WithExpense(next))
		return core.Expense{}, err
	}

	s.opts.Logger.InfoContext(ctx, "Expense updated", log.NewFields().WithExpense(saved).ToSlice()...)
	return saved, nil
}

// Delete removes expense id when it belongs to ownerID. Missing and foreign
// expenses are left alone without error.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id int64) error {
	if ownerID <= 0 {
		return core.ErrInvalidOwner
	}
	_, err := storeCall(ctx, s.opts.StoreTimeout, "delete expense", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Delete(ctx, id, ownerID)
	})
	if err != nil {
		s.opts.Logger.LogError(ctx, "Failed to delete expense", err, log.OpDelete,
			log.NewFields().WithOwner(ownerID).With(log.FieldExpenseID, id))
		return err
	}
	return nil
}

// Get returns expense id if it belongs to ownerID.
func (s *ExpenseService) Get(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	if ownerID <= 0 {
		return core.Expense{}, core.ErrInvalidOwner
	}
	e, err := storeCall(ctx, s.opts.StoreTimeout, "find expense", func(ctx context.Context) (core.Expense, error) {
		return s.repo.Find(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.opts.Logger.LogError(ctx, "Failed to load expense", err, log.OpRead,
				log.NewFields().WithOwner(ownerID).With(log.FieldExpenseID, id))
		}
		return core.Expense{}, err
	}
	if e.OwnerID != ownerID {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

// List returns one page of ownerID's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, ownerID int64, q ListQuery) (ExpensePage, error) {
	c, err := listCriteria(ownerID, q)
	if err != nil {
		return ExpensePage{}, err
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = s.opts.PageSize
	}
	if q.PageSize > MaxPageSize {
		return ExpensePage{}, core.Invalid("page_size", "must be at most 100")
	}
	page, err := core.NewPage(q.Page, q.PageSize)
	if err != nil {
		return ExpensePage{}, err
	}

	count, err := storeCall(ctx, s.opts.StoreTimeout, "count expenses", func(ctx context.Context) (int, error) {
		return s.repo.CountBy(ctx, c)
	})
	if err != nil {
		s.opts.Logger.LogError(ctx, "Failed to count expenses", err, log.OpList, log.NewFields().WithOwner(ownerID))
		return ExpensePage{}, err
	}
	items, err := storeCall(ctx, s.opts.StoreTimeout, "find expenses", func(ctx context.Context) ([]core.Expense, error) {
		return s.repo.FindBy(ctx, c, page.Offset(), page.Size)
	})
	if err != nil {
		s.opts.Logger.LogError(ctx, "Failed to list expenses", err, log.OpList, log.NewFields().WithOwner(ownerID))
		return ExpensePage{}, err
	}
	years, err := storeCall(ctx, s.opts.StoreTimeout, "list years", func(ctx context.Context) ([]int, error) {
		return s.repo.ListExpenditureYears(ctx, ownerID)
	})
	if err != nil {
		s.opts.Logger.LogError(ctx, "Failed to list expenditure years", err, log.OpList, log.NewFields().WithOwner(ownerID))
		return ExpensePage{}, err
	}

	return ExpensePage{
		Items:      items,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: core.TotalPages(count, page.Size),
		TotalCount: count,
		Years:      years,
	}, nil
}

func listCriteria(ownerID int64, q ListQuery) (core.Criteria, error) {
	var (
		c   core.Criteria
		err error
	)
	switch {
	case q.Month != 0 && q.Year == 0:
		return core.Criteria{}, core.Invalid("year", "is required when a month is given")
	case q.Month != 0:
		c, err = core.MonthCriteria(ownerID, q.Year, q.Month)
	case q.Year != 0:
		c, err = core.YearCriteria(ownerID, q.Year)
	default:
		c = core.ForOwner(ownerID)
		err = c.Validate()
	}
	if err != nil {
		return core.Criteria{}, err
	}
	return c.WithCategory(q.Category), nil
}

// build checks in and returns the expense it describes.
func (s *ExpenseService) build(ownerID int64, in ExpenseInput) (core.Expense, error) {
	if err := s.validate.Struct(in); err != nil {
		return core.Expense{}, validationError(err)
	}
	return core.NewExpense(ownerID, in.Date, in.Category, core.Cents(in.AmountCents), in.Description)
}

// validationError converts the first validator failure to a field-level
// core.ValidationError.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return core.Invalid("input", err.Error())
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return core.Invalid(fe.Field(), "is required")
	case "gt":
		return core.Invalid(fe.Field(), "must be greater than "+fe.Param())
	case "max":
		return core.Invalid(fe.Field(), "too long (max "+fe.Param()+" characters)")
	default:
		return core.Invalid(fe.Field(), "failed "+fe.Tag()+" check")
	}
}
