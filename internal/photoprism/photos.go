package photoprism

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// GetPhotoDetails retrieves the files and markers of a photo
func (pp *PhotoPrism) GetPhotoDetails(ctx context.Context, photoUID string) (*PhotoDetails, error) {
	return doGetJSON[PhotoDetails](ctx, pp, "photos/"+url.PathEscape(photoUID))
}

// GetPhotoDownload downloads the primary file of a photo. Face marker
// coordinates are relative to the primary file, so this is the file to use.
func (pp *PhotoPrism) GetPhotoDownload(ctx context.Context, photoUID string) ([]byte, string, error) {
	details, err := pp.GetPhotoDetails(ctx, photoUID)
	if err != nil {
		return nil, "", fmt.Errorf("could not get photo details: %w", err)
	}
	file, ok := details.PrimaryFile()
	if !ok || file.Hash == "" {
		return nil, "", errors.New("could not find file hash for photo")
	}
	return pp.GetFileDownload(ctx, file.Hash)
}

// GetFileDownload downloads a file using its hash via the /api/v1/dl/{hash} endpoint
func (pp *PhotoPrism) GetFileDownload(ctx context.Context, fileHash string) ([]byte, string, error) {
	return pp.download(ctx, fmt.Sprintf("%s/dl/%s?t=%s", pp.Url, url.PathEscape(fileHash), url.QueryEscape(pp.downloadToken)))
}

// GetPhotoThumbnail downloads a thumbnail, size is a PhotoPrism thumbnail
// name such as tile_224 or fit_1920.
func (pp *PhotoPrism) GetPhotoThumbnail(ctx context.Context, thumbHash, size string) ([]byte, string, error) {
	return pp.download(ctx, fmt.Sprintf("%s/t/%s/%s/%s", pp.Url, url.PathEscape(thumbHash), url.PathEscape(pp.downloadToken), size))
}
