// Package retry re-runs read-check-write steps that lost an optimistic
// revision race in the store.
package retry

import (
	"context"
	"errors"
	"fmt"

	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/metrics"
)

// OnConflict calls fn until it returns something other than domain.ErrConflict,
// at most retries+1 times. Exhaustion is reported as domain.ErrTransientConflict.
func OnConflict(ctx context.Context, operation string, retries int, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if attempt >= retries {
			return fmt.Errorf("%s: %d attempts: %w", operation, attempt+1, domain.ErrTransientConflict)
		}
		metrics.RecordConflictRetry(operation)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
