// migrations/migrations.go
package migrations

import "embed"

// Files holds the SQL migration sources compiled into the binary so the
// api container needs no migration files on disk.
//
//go:embed *.sql
var Files embed.FS
