// Package migrations содержит SQL-схему PostgreSQL, встроенную в бинарник
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
