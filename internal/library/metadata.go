package library

import (
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

// Metadata is what a local image file says about its capture.
type Metadata struct {
	Format   string
	TakenAt  time.Time
	Location *photo.GeoPoint
	Capture  photo.CaptureMetadata
	// Composite is set for perfect moments written by this tool.
	Composite *photo.CompositeOrigin
}

// ReadMetadata reads dimensions from the image header and camera data from
// EXIF. Missing EXIF is not an error.
func ReadMetadata(path string) (*Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	meta := &Metadata{
		Format:  format,
		Capture: photo.CaptureMetadata{Width: cfg.Width, Height: cfg.Height},
	}

	// EXIF lives in the JPEG APP1 segment, other formats are taken as camera-less
	if format != "jpeg" {
		return meta, nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", path, err)
	}
	if origin, ok := photo.ReadOrigin(file); ok {
		meta.Composite = origin
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", path, err)
	}
	x, err := exif.Decode(file)
	if err != nil {
		return meta, nil
	}

	meta.Capture.CameraMake = exifString(x, exif.Make)
	meta.Capture.CameraModel = exifString(x, exif.Model)
	meta.Capture.ExposureTime = exposureTime(x)
	meta.Capture.Aperture = exifRational(x, exif.FNumber)
	meta.Capture.FocalLength = exifRational(x, exif.FocalLength)
	if iso, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := iso.Int(0); err == nil {
			meta.Capture.ISO = v
		}
	}
	if o, err := x.Get(exif.Orientation); err == nil {
		if v, err := o.Int(0); err == nil {
			meta.Capture.Orientation = v
		}
	}
	if t, err := x.DateTime(); err == nil {
		meta.TakenAt = t
	}
	if lat, lng, err := x.LatLong(); err == nil {
		meta.Location = &photo.GeoPoint{Lat: lat, Lng: lng}
	}
	return meta, nil
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// exposureTime formats the shutter speed as "1/250" or "2.5s".
func exposureTime(x *exif.Exif) string {
	tag, err := x.Get(exif.ExposureTime)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 || num == 0 {
		return ""
	}
	if num == 1 && den > 1 {
		return fmt.Sprintf("1/%d", den)
	}
	return strconv.FormatFloat(float64(num)/float64(den), 'f', -1, 64) + "s"
}

func exifRational(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
