package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the calendar date layout used at every boundary (storage, CLI).
const DateLayout = "2006-01-02"

const maxDescriptionLength = 200

type (
	// Date is a calendar date. Only the year, month and day are meaningful;
	// the time of day is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single recorded expenditure. ID is zero until the store
	// assigns one on creation.
	Expense struct {
		ID          int64
		OwnerID     int64
		Date        Date
		Category    string
		Amount      Money
		Description string
	}
)

var (
	ErrInvalidAmount    = &ValidationError{Field: "amount", Reason: "must be greater than 0"}
	ErrEmptyDescription = &ValidationError{Field: "description", Reason: "is required"}
	ErrLongDescription  = &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	ErrEmptyCategory    = &ValidationError{Field: "category", Reason: "is required"}
	ErrInvalidDate      = &ValidationError{Field: "date", Reason: "is required"}
	ErrInvalidOwner     = &ValidationError{Field: "owner", Reason: "must be a positive identifier"}
	ErrInvalidMonth     = &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (optional range bounds)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// AddMonths returns the date n months later, normalised the way time.Date does.
func (d Date) AddMonths(n int) Date {
	return NewDate(d.Year(), d.Month()+n, d.Day())
}

// NewExpense builds a validated, not yet persisted expense.
func NewExpense(ownerID int64, date Date, category string, amount Money, description string) (Expense, error) {
	e := Expense{
		OwnerID:     ownerID,
		Date:        date,
		Category:    strings.TrimSpace(category),
		Amount:      amount,
		Description: strings.TrimSpace(description),
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// HasID reports whether the expense has been persisted.
func (e Expense) HasID() bool {
	return e.ID != 0
}

// WithID returns a copy carrying the store-assigned identity.
func (e Expense) WithID(id int64) Expense {
	e.ID = id
	return e
}

// Updated returns a copy with new field values. Identity and owner are kept.
func (e Expense) Updated(date Date, category string, amount Money, description string) (Expense, error) {
	next, err := NewExpense(e.OwnerID, date, category, amount, description)
	if err != nil {
		return Expense{}, err
	}
	next.ID = e.ID
	return next, nil
}

func (e Expense) Validate() error {
	if e.OwnerID <= 0 {
		return ErrInvalidOwner
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		return ErrLongDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
