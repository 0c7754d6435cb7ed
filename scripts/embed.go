// Package scripts embeds the built-in Risor rule scripts shipped with the
// bramble binary.
package scripts

import "embed"

//go:embed rules/*.risor
var FS embed.FS
