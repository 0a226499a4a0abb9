package queue

import "errors"

var (
	ErrStore = errors.New("event store")
	ErrLock  = errors.New("lock event directory")
)
