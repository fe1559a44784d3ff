package async

import "errors"

// ErrTimeout is returned by AwaitWithTimeout when the future does not
// complete within the given duration.
var ErrTimeout = errors.New("async operation timed out")
