// Package migrations carries the schema files compiled into the
// binary and the runners that apply them at startup.
package migrations

import "embed"

// PostgresFS holds the primary store's schema, applied in filename
// order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the event archive's schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
