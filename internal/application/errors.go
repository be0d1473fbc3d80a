package application

import (
	"context"
	"errors"

	"github.com/hallbook/service-reservation/internal/platform/apperror"
)

// storeError passes typed errors through and reports every other store failure as
// unavailable, so callers never see raw driver errors.
func storeError(err error, message string) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.NewUnavailableError("request timed out", err)
	}
	return apperror.NewUnavailableError(message, err)
}
