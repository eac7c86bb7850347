package pipeline

import "errors"

// ErrLocked indicates another stemswap process holds the output lock.
var ErrLocked = errors.New("output directory locked by another run")
