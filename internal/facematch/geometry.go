// Package facematch pairs faces found by a vision model with the identity
// regions already stored in the library, and normalises person names into
// stable identity keys.
package facematch

import "github.com/kozaktomas/photo-moments/internal/photo"

// IoU calculates Intersection over Union of two relative boxes.
func IoU(a, b photo.BoundingBox) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// PixelBoxToRelative converts a pixel box [x1, y1, x2, y2] measured on the
// displayed (EXIF-rotated) image into relative coordinates. width and height
// are the raw file dimensions; orientations 5-8 swap them for display.
func PixelBoxToRelative(corners [4]float64, width, height, orientation int) (photo.BoundingBox, bool) {
	if width <= 0 || height <= 0 {
		return photo.BoundingBox{}, false
	}
	dw, dh := float64(width), float64(height)
	if orientation >= 5 && orientation <= 8 {
		dw, dh = dh, dw
	}
	return photo.BoundingBox{
		X: corners[0] / dw,
		Y: corners[1] / dh,
		W: (corners[2] - corners[0]) / dw,
		H: (corners[3] - corners[1]) / dh,
	}, true
}

// Clamp trims a relative box to the unit square.
func Clamp(b photo.BoundingBox) photo.BoundingBox {
	x1 := min(max(b.X, 0), 1)
	y1 := min(max(b.Y, 0), 1)
	x2 := min(max(b.X+b.W, 0), 1)
	y2 := min(max(b.Y+b.H, 0), 1)
	return photo.BoundingBox{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}
