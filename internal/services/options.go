package services

import (
	"context"
	"log/slog"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

const (
	DefaultStoreTimeout = 5 * time.Second
	DefaultPageSize     = 10
	MaxPageSize         = 100
)

// Options are shared by the services. Zero values select the defaults.
type Options struct {
	// StoreTimeout bounds every single store call.
	StoreTimeout time.Duration
	// PageSize is used when a listing does not ask for one.
	PageSize int
	Logger   *log.Logger
}

func (o Options) withDefaults(component string) Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Logger == nil {
		o.Logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: component})
	} else {
		o.Logger = o.Logger.WithComponent(component)
	}
	return o
}

// storeCall runs fn under the store deadline. Failures that carry no core
// classification, deadline expiry included, become persistence errors.
func storeCall[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, core.Persistence(op, err)
	}
	return v, nil
}
