package credentials

import (
	"context"
	"fmt"

	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

var _ Storage = (*Redundant)(nil)

// Redundant writes every record to a primary store and any number of
// fallbacks. Reads prefer the primary. Set only fails when every store
// fails; Clear fails when the primary could not clear, since Get would
// still find the record there.
type Redundant struct {
	stores []namedStorage
}

type namedStorage struct {
	name string
	Storage
}

// NewRedundant combines a primary store with fallbacks, in read order.
func NewRedundant(primary Storage, fallbacks ...Storage) *Redundant {
	r := &Redundant{stores: []namedStorage{{name: "primary", Storage: primary}}}
	for i, f := range fallbacks {
		r.stores = append(r.stores, namedStorage{name: fmt.Sprintf("fallback-%d", i+1), Storage: f})
	}
	return r
}

func (r *Redundant) Set(ctx context.Context, key string, record Record) error {
	var errs []error
	for _, s := range r.stores {
		if err := s.Set(ctx, key, record); err != nil {
			log.Warn().Err(err).Str("store", s.name).Msg("Failed to persist credentials")
			errs = append(errs, err)
		}
	}
	if len(errs) == len(r.stores) {
		return errors.Wrapf(errors.Join(errs...), "[credentials Set] all stores failed")
	}
	return nil
}

func (r *Redundant) Get(ctx context.Context, key string) (Record, error) {
	var lastErr error = errors.ErrCredentialsNotFound
	for _, s := range r.stores {
		record, err := s.Get(ctx, key)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, errors.ErrCredentialsNotFound) {
			log.Warn().Err(err).Str("store", s.name).Msg("Failed to read credentials")
			lastErr = err
		}
	}
	return Record{}, lastErr
}

func (r *Redundant) Clear(ctx context.Context, key string) error {
	var primaryErr error
	for i, s := range r.stores {
		if err := s.Clear(ctx, key); err != nil {
			log.Warn().Err(err).Str("store", s.name).Msg("Failed to clear credentials")
			if i == 0 {
				primaryErr = err
			}
		}
	}
	if primaryErr != nil {
		return errors.Wrapf(primaryErr, "[credentials Clear] primary store")
	}
	return nil
}
