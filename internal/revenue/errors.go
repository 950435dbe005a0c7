package revenue

import "errors"

// ErrNotFound is returned by stores when a requested record does not exist.
// The resolver treats it as absence, never as a failure.
var ErrNotFound = errors.New("revenue record not found")
