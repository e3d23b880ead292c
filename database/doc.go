// Package database provides Bun connection management across PostgreSQL, MySQL
// and SQLite, error classification, query hooks, and a unit-of-work Session
// that backs the generic repository.
package database
