// Package all registers every storage backend with the factory.
// Binaries blank-import this package; config then selects the kind at runtime.
package all

import (
	_ "partsetl/internal/storage/jsonfile"
	_ "partsetl/internal/storage/mssql"
	_ "partsetl/internal/storage/postgres"
	_ "partsetl/internal/storage/sqlite"
)
