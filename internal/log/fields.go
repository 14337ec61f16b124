package log

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldOwnerID     = "owner_id"
	FieldExpenseID   = "expense_id"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldAlertCount  = "alert_count"
	FieldBatchID     = "batch_id"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCLI      = "cli"
	ComponentExpense  = "expense"
	ComponentSummary  = "summary"
	ComponentAlerts   = "alerts"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentNotify   = "notify"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
	ComponentSchedule = "schedule"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSummary  = "summary"
	OpAverages = "averages"
	OpAlerts   = "alerts"
	OpNotify   = "notify"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// ErrorType maps an error onto one of the ErrorType categories.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, core.ErrPersistence):
		return ErrorTypeDatabase
	default:
		return ErrorTypeInternal
	}
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error and error type fields
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorType(err)
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// WithOwner adds the owner field
func (f LogFields) WithOwner(ownerID int64) LogFields {
	f[FieldOwnerID] = ownerID
	return f
}

// WithPeriod adds year and month fields. A zero month is omitted.
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	if month != 0 {
		f[FieldMonth] = month
	}
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(e core.Expense) LogFields {
	if e.HasID() {
		f[FieldExpenseID] = e.ID
	}
	f[FieldOwnerID] = e.OwnerID
	f[FieldCategory] = e.Category
	f[FieldAmountCents] = e.Amount.Cents
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
