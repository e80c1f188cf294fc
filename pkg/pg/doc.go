// Package pg provides connection pooling and goose migrations for the
// PostgreSQL notification record store.
package pg
