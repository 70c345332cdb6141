// Package library discovers the photos to curate: a PhotoPrism album (or
// search) and a local directory tree.
package library

import (
	"path"
	"strings"
)

// screenshotMarkers are lowercase file name fragments of screen captures.
var screenshotMarkers = []string{"screenshot", "screen shot", "screen_shot", "bildschirmfoto", "snimek obrazovky"}

// IsScreenshotName reports whether a file name looks like a screen capture.
func IsScreenshotName(name string) bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, m := range screenshotMarkers {
		if strings.Contains(base, m) {
			return true
		}
	}
	return false
}
