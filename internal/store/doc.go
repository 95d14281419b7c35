// Package store defines the persistence interfaces for users, events,
// participations, and notifications, plus the transaction helper the
// services build on. Implementations live in internal/platform/postgres.
package store
