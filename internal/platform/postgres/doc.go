// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores operate on store.DBTX so they can run against a
// plain connection pool or inside a transaction.
package postgres
