package library

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	v := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: 2, count: uint32(len(v)), value: v}
}

func shortEntry(tag, v uint16) ifdEntry {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return ifdEntry{tag: tag, typ: 3, count: 1, value: b}
}

// exifSegment builds a JPEG APP1 segment holding a single little-endian IFD.
func exifSegment(entries []ifdEntry) []byte {
	le := binary.LittleEndian
	var tiff bytes.Buffer
	tiff.WriteString("II")
	_ = binary.Write(&tiff, le, uint16(42))
	_ = binary.Write(&tiff, le, uint32(8))

	dataOffset := uint32(8 + 2 + 12*len(entries) + 4)
	var data bytes.Buffer
	_ = binary.Write(&tiff, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&tiff, le, e.tag)
		_ = binary.Write(&tiff, le, e.typ)
		_ = binary.Write(&tiff, le, e.count)
		if len(e.value) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.value)
			tiff.Write(inline)
			continue
		}
		_ = binary.Write(&tiff, le, dataOffset+uint32(data.Len()))
		data.Write(e.value)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(&tiff, le, uint32(0))
	tiff.Write(data.Bytes())

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	segment := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(segment[2:], uint16(len(payload)+2))
	return append(segment, payload...)
}

func sampleImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := range 30 {
		for x := range 40 {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: 100, A: 255})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, entries []ifdEntry) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, sampleImage(), nil))
	data := buf.Bytes()
	if len(entries) > 0 {
		data = append(append(append([]byte{}, data[:2]...), exifSegment(entries)...), data[2:]...)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func libraryDir(t *testing.T) (string, time.Time) {
	t.Helper()
	root := t.TempDir()
	writeJPEG(t, filepath.Join(root, "IMG_1.jpg"), []ifdEntry{
		asciiEntry(0x010F, "Google"),
		asciiEntry(0x0110, "Pixel 8"),
		shortEntry(0x0112, 6),
		asciiEntry(0x0132, "2024:06:01 18:30:05"),
	})
	writeJPEG(t, filepath.Join(root, "IMG_2.jpg"), nil)
	writeJPEG(t, filepath.Join(root, "Screenshot_2024-06-01.jpg"), nil)
	writePNG(t, filepath.Join(root, "diagram.png"))
	writeJPEG(t, filepath.Join(root, "sub", "IMG_3.jpg"), nil)
	writeJPEG(t, filepath.Join(root, ".thumbs", "IMG_1.jpg"), nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.jpg"), []byte("not a jpeg"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "IMG_1.jpg.analysis.json"), []byte("{}"), 0o600))

	mtime := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "IMG_2.jpg"), mtime, mtime))
	return root, mtime
}

func TestDirectory_Photos(t *testing.T) {
	root, mtime := libraryDir(t)
	dir := NewDirectory(root, false, nil)

	var last [2]int
	photos, err := dir.Photos(context.Background(), func(done, total int) { last = [2]int{done, total} })
	require.NoError(t, err)

	got := make([]string, len(photos))
	for i, p := range photos {
		got[i] = p.ID
	}
	assert.Equal(t, []string{"IMG_1.jpg", "IMG_2.jpg", "Screenshot_2024-06-01.jpg", "diagram.png"}, got)
	assert.Equal(t, [2]int{5, 5}, last)

	exifPhoto := photos[0]
	assert.Equal(t, "Google", exifPhoto.Capture.CameraMake)
	assert.Equal(t, "Pixel 8", exifPhoto.Capture.CameraModel)
	assert.Equal(t, 6, exifPhoto.Capture.Orientation)
	assert.Equal(t, 40, exifPhoto.Capture.Width)
	assert.Equal(t, 30, exifPhoto.Capture.Height)
	assert.Equal(t, "2024-06-01 18:30:05", exifPhoto.TakenAt.Format("2006-01-02 15:04:05"))
	assert.False(t, exifPhoto.Screenshot)
	assert.Equal(t, filepath.Join(root, "IMG_1.jpg"), exifPhoto.Source)

	assert.True(t, photos[1].TakenAt.Equal(mtime), "falls back to file time")
	assert.False(t, photos[1].Screenshot)
	assert.True(t, photos[2].Screenshot, "named like a screenshot")
	assert.True(t, photos[3].Screenshot, "png without camera data")

	data, err := dir.FetchImage(context.Background(), exifPhoto)
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(root, "IMG_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestDirectory_Recursive(t *testing.T) {
	root, _ := libraryDir(t)
	photos, err := NewDirectory(root, true, nil).Photos(context.Background(), nil)
	require.NoError(t, err)

	var got []string
	for _, p := range photos {
		got = append(got, p.ID)
	}
	assert.Contains(t, got, "sub/IMG_3.jpg")
	assert.NotContains(t, got, ".thumbs/IMG_1.jpg")
	assert.Len(t, got, 5)
}

func TestDirectory_MarksReingestedComposites(t *testing.T) {
	root := t.TempDir()
	takenAt := time.Date(2024, 6, 1, 18, 30, 5, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, sampleImage(), nil))
	marked, err := photo.EmbedOrigin(buf.Bytes(), photo.CompositeOrigin{
		ResultID: "r1", ClusterID: "c1", BasePhotoID: "IMG_1.jpg", TakenAt: takenAt,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "exported.jpg"), marked, 0o600))
	writeJPEG(t, filepath.Join(root, photo.CompositeFileName("r2")), nil)
	writeJPEG(t, filepath.Join(root, "IMG_9.jpg"), nil)

	photos, err := NewDirectory(root, false, nil).Photos(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	byID := map[string]photo.Photo{}
	for _, p := range photos {
		byID[p.ID] = p
	}

	embedded := byID["exported.jpg"]
	require.True(t, embedded.IsComposite(), "origin read from the file")
	assert.Equal(t, "r1", embedded.Composite.ResultID)
	assert.Equal(t, "c1", embedded.Composite.ClusterID)
	assert.True(t, embedded.TakenAt.Equal(takenAt), "takes the capture time of its base photo")

	named := byID[photo.CompositeFileName("r2")]
	require.True(t, named.IsComposite(), "recognised by file name")
	assert.Equal(t, "r2", named.Composite.ResultID)

	assert.False(t, byID["IMG_9.jpg"].IsComposite())
}

func TestDirectory_Errors(t *testing.T) {
	_, err := NewDirectory(filepath.Join(t.TempDir(), "missing"), false, nil).Photos(context.Background(), nil)
	assert.Error(t, err)

	root, _ := libraryDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewDirectory(root, false, nil).Photos(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsScreenshotName(t *testing.T) {
	tests := map[string]bool{
		"Screenshot_20240601-101010.png":      true,
		"Screen Shot 2020-01-01 at 10.00.png": true,
		"/photos/2024/screenshot.jpg":         true,
		`C:\Users\me\Bildschirmfoto 2024.png`: true,
		"IMG_0001.jpg":                        false,
		"/screenshots/IMG_0001.jpg":           false,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, IsScreenshotName(name))
		})
	}
}
