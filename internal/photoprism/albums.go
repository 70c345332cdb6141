package photoprism

import (
	"context"
	"fmt"
	"net/url"
)

// GetAlbum retrieves a single album by UID
func (pp *PhotoPrism) GetAlbum(ctx context.Context, albumUID string) (*Album, error) {
	return doGetJSON[Album](ctx, pp, "albums/"+url.PathEscape(albumUID))
}

// GetAlbumPhotos retrieves one page of photos from an album
func (pp *PhotoPrism) GetAlbumPhotos(ctx context.Context, albumUID string, count, offset int) ([]Photo, error) {
	return pp.SearchPhotos(ctx, "", albumUID, count, offset)
}

// SearchPhotos retrieves one page of photos, optionally filtered by a search
// query (e.g. "year:2024") and an album UID.
func (pp *PhotoPrism) SearchPhotos(ctx context.Context, query, albumUID string, count, offset int) ([]Photo, error) {
	params := url.Values{}
	params.Set("count", fmt.Sprint(count))
	params.Set("offset", fmt.Sprint(offset))
	params.Set("order", "oldest")
	if query != "" {
		params.Set("q", query)
	}
	if albumUID != "" {
		params.Set("s", albumUID)
	}

	result, err := doGetJSON[[]Photo](ctx, pp, "photos?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// AllPhotos pages through SearchPhotos until a short page is returned.
// onPage, when set, receives the number of photos fetched so far.
func (pp *PhotoPrism) AllPhotos(ctx context.Context, query, albumUID string, pageSize int, onPage func(fetched int)) ([]Photo, error) {
	var all []Photo
	for offset := 0; ; offset += pageSize {
		page, err := pp.SearchPhotos(ctx, query, albumUID, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch photos at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if onPage != nil {
			onPage(len(all))
		}
		if len(page) < pageSize {
			return all, nil
		}
	}
}
