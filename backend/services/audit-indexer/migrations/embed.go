// Package migrations holds the audit indexer schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
