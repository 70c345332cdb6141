package library

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/facematch"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/photoprism"
)

// rawThumbnail is the thumbnail used instead of camera RAW originals, which
// the image decoders cannot read.
const rawThumbnail = "fit_2048"

// PhotoPrismAlbum lists photos of a PhotoPrism album or search query and
// serves their images and face markers.
type PhotoPrismAlbum struct {
	client   *photoprism.PhotoPrism
	albumUID string
	query    string
	pageSize int
	log      *logger.Logger

	mu    sync.RWMutex
	files map[string]photoprism.Photo
}

// NewPhotoPrismAlbum creates a source. Either albumUID or query may be empty.
func NewPhotoPrismAlbum(client *photoprism.PhotoPrism, albumUID, query string, log *logger.Logger) *PhotoPrismAlbum {
	return &PhotoPrismAlbum{
		client:   client,
		albumUID: albumUID,
		query:    query,
		pageSize: constants.DefaultPageSize,
		log:      logger.OrNop(log),
		files:    make(map[string]photoprism.Photo),
	}
}

// Photos pages through the album. Videos are skipped.
func (s *PhotoPrismAlbum) Photos(ctx context.Context, onProgress func(done, total int)) ([]photo.Photo, error) {
	total := 0
	if s.albumUID != "" {
		album, err := s.client.GetAlbum(ctx, s.albumUID)
		if err != nil {
			return nil, fmt.Errorf("get album %s: %w", s.albumUID, err)
		}
		total = album.PhotoCount
	}

	items, err := s.client.AllPhotos(ctx, s.query, s.albumUID, s.pageSize, func(fetched int) {
		if onProgress != nil {
			onProgress(fetched, max(total, fetched))
		}
	})
	if err != nil {
		return nil, err
	}

	photos := make([]photo.Photo, 0, len(items))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if item.Type == "video" {
			continue
		}
		p, err := convertPhotoPrism(item)
		if err != nil {
			s.log.Warn("skipping photo without capture time", "photo", item.UID, "error", err)
			continue
		}
		s.files[item.UID] = item
		photos = append(photos, p)
	}
	return photos, nil
}

func convertPhotoPrism(item photoprism.Photo) (photo.Photo, error) {
	takenAt, err := time.Parse(time.RFC3339, item.TakenAt)
	if err != nil {
		return photo.Photo{}, err
	}
	if item.TimeZone != "" && item.TimeZone != "UTC" {
		if loc, err := time.LoadLocation(item.TimeZone); err == nil {
			takenAt = takenAt.In(loc)
		}
	}

	name := item.OriginalName
	if name == "" {
		name = item.FileName
	}
	p := photo.Photo{
		ID:      item.UID,
		TakenAt: takenAt,
		Source:  item.UID,
		Capture: photo.CaptureMetadata{
			Width:        item.Width,
			Height:       item.Height,
			CameraMake:   item.CameraMake,
			CameraModel:  item.CameraModel,
			FocalLength:  float64(item.FocalLength),
			Aperture:     item.FNumber,
			ISO:          item.Iso,
			ExposureTime: item.Exposure,
		},
		Screenshot: IsScreenshotName(name) || isCameraLessPNG(item),
	}
	if item.Lat != 0 || item.Lng != 0 {
		p.Location = &photo.GeoPoint{Lat: item.Lat, Lng: item.Lng}
	}
	if origin, ok := photo.OriginFromFileName(name); ok {
		p.Composite = origin
		p.Screenshot = false
	}
	return p, nil
}

func isCameraLessPNG(item photoprism.Photo) bool {
	return item.Mime == "image/png" && strings.TrimSpace(item.CameraModel) == "" &&
		(item.CameraMake == "" || item.CameraMake == "Unknown")
}

// FetchImage downloads the primary file, or a large thumbnail for RAW photos.
func (s *PhotoPrismAlbum) FetchImage(ctx context.Context, p photo.Photo) ([]byte, error) {
	s.mu.RLock()
	item, ok := s.files[p.ID]
	s.mu.RUnlock()

	if ok && item.Type == "raw" && item.Hash != "" {
		data, _, err := s.client.GetPhotoThumbnail(ctx, item.Hash, rawThumbnail)
		return data, err
	}
	data, _, err := s.client.GetPhotoDownload(ctx, p.ID)
	return data, err
}

// Regions returns the valid face markers of the photo as named regions.
func (s *PhotoPrismAlbum) Regions(ctx context.Context, p photo.Photo) ([]facematch.Region, error) {
	markers, err := s.client.GetPhotoMarkers(ctx, p.ID)
	if err != nil {
		if photoprism.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	regions := make([]facematch.Region, 0, len(markers))
	for _, m := range markers {
		if m.W <= 0 || m.H <= 0 {
			continue
		}
		regions = append(regions, facematch.Region{
			ID:        m.UID,
			Name:      m.Name,
			SubjectID: m.SubjUID,
			Box:       photo.BoundingBox{X: m.X, Y: m.Y, W: m.W, H: m.H},
		})
	}
	return regions, nil
}
