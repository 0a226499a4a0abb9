package main

import "errors"

// Usage errors (exit 2)
var (
	ErrUsage       = errors.New("usage")
	ErrUnknownMode = errors.New("unknown mode")
	ErrMissingMode = errors.New("mode required")
)

// Fatal errors (exit 1)
var (
	ErrCreateEventDir = errors.New("create event directory")
	ErrOpenJournal    = errors.New("open delivery journal")
	ErrBuildRelay     = errors.New("build relay")
	ErrJournalOff     = errors.New("delivery journal is disabled (set journal.driver)")
)
