// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects makes these kinds available to storage.Open:
//
//   - "postgres" (retailetl/internal/storage/postgres)
//   - "sqlite", "mysql", "mssql" (retailetl/internal/storage/sqlstore)
//
// Binaries that need only one backend can import that package directly.
package all

import (
	_ "retailetl/internal/storage/postgres"
	_ "retailetl/internal/storage/sqlstore"
)
