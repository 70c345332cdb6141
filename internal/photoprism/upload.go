package photoprism

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// UploadData uploads an in-memory file to the user's upload folder and
// returns the upload token used for processing.
func (pp *PhotoPrism) UploadData(ctx context.Context, fileName string, data []byte) (string, error) {
	if pp.userUID == "" {
		return "", errors.New("user UID not available")
	}

	uploadToken := strconv.FormatInt(time.Now().UnixNano(), 10)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", fileName)
	if err != nil {
		return "", fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("could not write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("could not close writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/upload/%s", pp.Url, pp.userUID, uploadToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+pp.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := pp.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}
	return uploadToken, nil
}

// ProcessUpload imports previously uploaded files and optionally adds them to albums
func (pp *PhotoPrism) ProcessUpload(ctx context.Context, uploadToken string, albumUIDs []string) error {
	if pp.userUID == "" {
		return errors.New("user UID not available")
	}

	options := struct {
		Albums []string `json:"albums,omitempty"`
	}{
		Albums: albumUIDs,
	}
	return doRequestRaw(ctx, pp, http.MethodPut, fmt.Sprintf("users/%s/upload/%s", pp.userUID, uploadToken), options)
}
