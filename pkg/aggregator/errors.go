package aggregator

import "errors"

// ErrUnknownDimension is returned by ParseDimensions for unsupported names.
var ErrUnknownDimension = errors.New("unknown dimension")
