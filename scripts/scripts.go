// Package scripts embeds the Risor policy scripts shipped with graft.
package scripts

import "embed"

// FS holds policy/<language>.risor for every supported language.
//
//go:embed policy/*.risor
var FS embed.FS
