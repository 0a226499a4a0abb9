// Package daemon keeps the relay running between Icinga notifications.
//
// It flushes the event directory on a schedule and, when watching is
// enabled, shortly after a new event file appears. All triggers feed one
// worker so flushes never overlap inside the process. The directory lock
// still guards against CLI invocations running at the same time.
package daemon
