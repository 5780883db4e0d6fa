// Package postgres provides PostgreSQL implementations of the store
// interfaces. The stores speak plain database/sql through store.DBTX, so
// they run against a connection pool or inside a transaction, and map
// driver-level errors onto the store package's error taxonomy.
package postgres
