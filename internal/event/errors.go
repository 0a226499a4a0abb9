package event

import "errors"

var (
	ErrNoAPIKey  = errors.New("api key required")
	ErrMalformed = errors.New("malformed event document")
)
