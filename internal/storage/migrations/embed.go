// Package migrations carries the schema DDL for both stores, embedded
// so a deployed binary needs no migration files on disk. Files apply in
// lexical order; the numeric prefix is the ordering.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
