package thumbnail

import (
	"errors"
	"fmt"
)

// ErrPermanent marks job failures that no retry can fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so that it matches ErrPermanent
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err must not be retried
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
