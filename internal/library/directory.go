package library

import (
	"context"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	_ "golang.org/x/image/bmp"

	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Directory lists image files under Root. Photo ids are slash separated
// paths relative to Root.
type Directory struct {
	Root      string
	Recursive bool
	log       *logger.Logger
}

func NewDirectory(root string, recursive bool, log *logger.Logger) *Directory {
	return &Directory{Root: root, Recursive: recursive, log: logger.OrNop(log)}
}

func (d *Directory) Photos(ctx context.Context, onProgress func(done, total int)) ([]photo.Photo, error) {
	paths, err := d.list()
	if err != nil {
		return nil, err
	}

	photos := make([]photo.Photo, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := d.readPhoto(path)
		if err != nil {
			d.log.Warn("skipping unreadable image", "path", path, "error", err)
		} else {
			photos = append(photos, p)
		}
		if onProgress != nil {
			onProgress(i+1, len(paths))
		}
	}
	return photos, nil
}

func (d *Directory) list() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != d.Root && (!d.Recursive || strings.HasPrefix(entry.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.Root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *Directory) readPhoto(path string) (photo.Photo, error) {
	rel, err := filepath.Rel(d.Root, path)
	if err != nil {
		return photo.Photo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return photo.Photo{}, err
	}

	meta, err := ReadMetadata(path)
	if err != nil {
		return photo.Photo{}, err
	}

	p := photo.Photo{
		ID:       filepath.ToSlash(rel),
		TakenAt:  info.ModTime(),
		Source:   path,
		Location: meta.Location,
		Capture:  meta.Capture,
	}
	if !meta.TakenAt.IsZero() {
		p.TakenAt = meta.TakenAt
	}
	p.Composite = meta.Composite
	if p.Composite == nil {
		p.Composite, _ = photo.OriginFromFileName(path)
	}
	if p.IsComposite() {
		// a composite shares the capture time of its base photo
		if meta.TakenAt.IsZero() && !p.Composite.TakenAt.IsZero() {
			p.TakenAt = p.Composite.TakenAt
		}
		return p, nil
	}
	cameraLess := meta.Capture.CameraMake == "" && meta.Capture.CameraModel == ""
	p.Screenshot = IsScreenshotName(path) || (meta.Format == "png" && cameraLess)
	return p, nil
}

// FetchImage reads the file of a photo listed by this directory.
func (d *Directory) FetchImage(_ context.Context, p photo.Photo) ([]byte, error) {
	return os.ReadFile(p.Source)
}
