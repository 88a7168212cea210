package memory

import "errors"

var (
	errQueueClosed    = errors.New("queue closed")
	errUnknownFailure = errors.New("job failed")
)
