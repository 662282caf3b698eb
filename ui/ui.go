//go:build ui

// Package ui embeds the browser chat page. Build with -tags ui to include it;
// without the tag the server runs API-only.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the chat page bundle rooted at dist/.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
