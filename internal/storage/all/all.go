// Package all registers every storage backend. Import it for side effects.
package all

import (
	_ "prep/internal/storage/mssql"
	_ "prep/internal/storage/postgres"
	_ "prep/internal/storage/sqlite"
)
