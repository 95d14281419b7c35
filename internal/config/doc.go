// Package config loads and validates application settings from environment
// variables and an optional config file, giving the rest of the code
// type-safe access to server, database, auth, mail, and task configuration.
package config
