package relay

import "errors"

var (
	ErrNoEndpoint      = errors.New("relay endpoint required")
	ErrInvalidEndpoint = errors.New("invalid relay endpoint")
)
