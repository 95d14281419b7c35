// Package postgres implements the store interfaces on PostgreSQL: query
// execution, row mapping, and the translation of driver errors into the
// store package's sentinel errors.
package postgres
