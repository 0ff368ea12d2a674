// Package notifications tells the user that the renderer is unusable.
//
// Two transports are available: a local dialog command, launched detached
// with the error type on its command line, and an ntfy topic for remote
// alerts. NewReporter composes whichever are configured and degrades to a
// no-op when neither is. Callers depend only on the Reporter interface.
package notifications
