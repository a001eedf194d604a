package domain

import "errors"

// ErrGridKeyMissing means an order timestamp fell outside the materialized
// datetime grid. The grid is extended before facts are written, so hitting
// this indicates a normalization bug.
var ErrGridKeyMissing = errors.New("no datetime key for timestamp")
