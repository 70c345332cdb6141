package photoprism

import "context"

// MarkerTypeFace is the marker type of detected or manually drawn faces.
const MarkerTypeFace = "face"

// GetPhotoMarkers returns the valid face markers of the photo's primary file.
func (pp *PhotoPrism) GetPhotoMarkers(ctx context.Context, photoUID string) ([]Marker, error) {
	details, err := pp.GetPhotoDetails(ctx, photoUID)
	if err != nil {
		return nil, err
	}
	return FaceMarkers(details), nil
}

// FaceMarkers extracts the valid face markers of the primary file.
func FaceMarkers(details *PhotoDetails) []Marker {
	file, ok := details.PrimaryFile()
	if !ok {
		return nil
	}
	var markers []Marker
	for _, m := range file.Markers {
		if m.Invalid || m.Type != MarkerTypeFace {
			continue
		}
		markers = append(markers, m)
	}
	return markers
}
