package database

import (
	"context"
	"errors"

	"github.com/Rana718/seedbench/internal/model"
)

// Classify wraps err as a DataAccessError using c to pick the fault class.
// Cancellation and errors that are already classified pass through.
func Classify(c Classifier, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var dae *model.DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &model.DataAccessError{Op: op, Transient: c.IsTransient(err), Err: err}
}
