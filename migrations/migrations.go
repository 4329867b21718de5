// Package migrations embeds the SQL schema applied by golang-migrate at
// service start-up and by the integration test suite.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
