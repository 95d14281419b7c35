// Package events decouples the services from background task processing.
// A service that wants an email delivered emits a TaskRequestEvent; a
// registered EventHandler turns it into a persisted task. Neither side
// knows about the other.
package events
