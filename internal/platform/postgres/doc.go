// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. It owns the schema migrations and maps
// constraint violations to the store package's sentinel errors.
package postgres
