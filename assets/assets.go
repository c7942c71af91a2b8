// Package assets holds files compiled into the binaries.
package assets

import (
	_ "embed"
)

// Schema creates every table wtapicks uses.  It is safe to apply more than
// once.
//
//go:embed schema.sql
var Schema string
