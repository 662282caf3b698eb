//go:build !ui

// Package ui embeds the browser chat page. Build with -tags ui to include it;
// without the tag the server runs API-only.
package ui

import "io/fs"

// DistFS returns nil when built without the ui tag. The server then skips
// mounting the chat page.
func DistFS() (fs.FS, error) {
	return nil, nil
}
