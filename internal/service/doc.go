// Package service implements the application's use cases on top of the
// domain entities and store interfaces: account management, the event
// lifecycle, registration with capacity enforcement, and notification
// fan-out.
//
// Services receive their dependencies through constructors: stores, a
// TxRunner for transactional boundaries, and the event emitter used to
// request background email delivery. Operations that must be atomic, such
// as registering for an event with limited capacity, run inside a single
// transaction through the TxRunner; the notification service's Notify*
// methods join that transaction and hand back an EmailBatch the caller
// dispatches only after commit.
//
// Errors surface either as sentinel values (ErrEventFull,
// ErrAlreadyRegistered, store.ErrNotFound and friends) that the API layer
// maps to status codes, or wrapped in a ServiceError carrying the failed
// operation's name.
package service
